package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"membersync/core/catalog/mocks"
	"membersync/feature/sync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func rawPage(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, json.RawMessage(item))
	}
	return out
}

func TestCatalogFetcher_Customers(t *testing.T) {
	client := new(mocks.Client)
	client.On("List", mock.Anything, "customers", 1, 40).Return(rawPage(
		`{"id":10,"email":"a@example.org","username":"111A","role":"subscriber"}`,
		`{"id":11,"email":"b@example.org","username":"222B","role":"administrator"}`,
	), nil)

	f := newCatalogFetcher(client, 40)
	customers, err := f.Customers(nil)(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "111A", customers[0].Username)
	assert.True(t, customers[1].IsAdmin())
	client.AssertExpectations(t)
}

func TestCatalogFetcher_OrdersScopedToCustomer(t *testing.T) {
	client := new(mocks.Client)
	client.On("List", mock.Anything, "orders?customer=12", 1, 40).Return(rawPage(
		`{"id":500,"customer_id":12,"status":"completed","total":"25.50","line_items":[{"id":1,"name":"Cena","quantity":2,"total":"25.50"}]}`,
	), nil)

	f := newCatalogFetcher(client, 40)
	orders, err := f.Orders(12, nil)(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(12), orders[0].CustomerID)
	assert.Equal(t, models.Money(25.50), orders[0].Total)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, 2, orders[0].Items[0].Quantity)
	client.AssertExpectations(t)
}

func TestCatalogFetcher_EventsFreshCacheSkipsVariations(t *testing.T) {
	client := new(mocks.Client)
	client.On("List", mock.Anything, "products", 1, 40).Return(rawPage(
		`{"id":7,"name":"Gala","date_modified":"2024-05-01T10:00:00"}`,
	), nil)

	cached := models.Event{
		ID:           7,
		Name:         "Gala",
		DateModified: models.WooTime{Time: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		Variations:   []models.EventVariation{{ID: 70, Description: "Socio"}},
	}

	f := newCatalogFetcher(client, 40)
	events, err := f.Events(false, nil)(context.Background(), []models.Event{cached})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, cached, events[0])

	client.AssertNotCalled(t, "List", mock.Anything, "products/7/variations", mock.Anything, mock.Anything)
	client.AssertExpectations(t)
}

func TestCatalogFetcher_EventsModifiedRemotelyRefetches(t *testing.T) {
	client := new(mocks.Client)
	client.On("List", mock.Anything, "products", 1, 40).Return(rawPage(
		`{"id":7,"name":"Gala","price":"30.00","date_modified":"2024-06-15T09:30:00"}`,
	), nil)
	client.On("List", mock.Anything, "products/7/variations", 1, 40).Return(rawPage(
		`{"id":70,"description":"Socio","price":"20.00","stock_status":"instock"}`,
		`{"id":71,"description":"Invitado","price":"30.00","stock_status":"instock"}`,
	), nil)

	cached := models.Event{
		ID:           7,
		DateModified: models.WooTime{Time: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		Variations:   []models.EventVariation{{ID: 70, Description: "Socio"}},
	}

	f := newCatalogFetcher(client, 40)
	events, err := f.Events(false, nil)(context.Background(), []models.Event{cached})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Len(t, events[0].Variations, 2)
	assert.Equal(t, models.Money(30), events[0].Price)
	client.AssertExpectations(t)
}

func TestCatalogFetcher_EventsIgnoreCacheForcesRefetch(t *testing.T) {
	client := new(mocks.Client)
	client.On("List", mock.Anything, "products", 1, 40).Return(rawPage(
		`{"id":7,"name":"Gala","date_modified":"2024-05-01T10:00:00"}`,
	), nil)
	client.On("List", mock.Anything, "products/7/variations", 1, 40).Return(rawPage(), nil)

	cached := models.Event{
		ID: 7,
		// Cached copy is newer than the remote, which would normally short-circuit.
		DateModified: models.WooTime{Time: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
	}

	f := newCatalogFetcher(client, 40)
	events, err := f.Events(true, nil)(context.Background(), []models.Event{cached})
	require.NoError(t, err)
	require.Len(t, events, 1)
	client.AssertCalled(t, "List", mock.Anything, "products/7/variations", 1, 40)
}

func TestCatalogFetcher_MalformedItem(t *testing.T) {
	client := new(mocks.Client)
	client.On("List", mock.Anything, "customers", 1, 40).Return(rawPage(`{"id":"not-a-number"}`), nil)

	f := newCatalogFetcher(client, 40)
	_, err := f.Customers(nil)(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, FailureParse, classify(err))
}
