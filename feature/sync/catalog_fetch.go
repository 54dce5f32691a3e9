package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"membersync/core/catalog"
	"membersync/feature/sync/models"
)

// Catalog resource paths.
const (
	resourceCustomers = "customers"
	resourceOrders    = "orders"
	resourceEvents    = "products"
	resourcePayments  = "payments"
)

// catalogFetcher turns the raw catalog client into typed remote fetches for
// the reconciler, walking pages via FetchAll.
type catalogFetcher struct {
	client  catalog.Client
	perPage int
}

func newCatalogFetcher(client catalog.Client, perPage int) *catalogFetcher {
	if perPage <= 0 {
		perPage = 40
	}
	return &catalogFetcher{client: client, perPage: perPage}
}

// listResource walks every page of a resource and decodes each item into T.
func listResource[T any](ctx context.Context, f *catalogFetcher, resource string, progress ProgressFunc) ([]T, error) {
	page := func(ctx context.Context, page, perPage int) ([]json.RawMessage, error) {
		return f.client.List(ctx, resource, page, perPage)
	}
	item := func(ctx context.Context, raw json.RawMessage, index, pageSize int) (T, error) {
		var decoded T
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return decoded, fmt.Errorf("failed to parse %s item: %w", resource, err)
		}
		if progress != nil {
			progress(index+1, pageSize)
		}
		return decoded, nil
	}
	return FetchAll(ctx, f.perPage, page, item)
}

// Customers returns a FetchFunc over the full customer collection.
func (f *catalogFetcher) Customers(progress ProgressFunc) FetchFunc[models.Customer] {
	return func(ctx context.Context, _ []models.Customer) ([]models.Customer, error) {
		return listResource[models.Customer](ctx, f, resourceCustomers, progress)
	}
}

// Orders returns a FetchFunc over one customer's orders.
func (f *catalogFetcher) Orders(customerID int64, progress ProgressFunc) FetchFunc[models.Order] {
	resource := fmt.Sprintf("%s?customer=%d", resourceOrders, customerID)
	return func(ctx context.Context, _ []models.Order) ([]models.Order, error) {
		return listResource[models.Order](ctx, f, resource, progress)
	}
}

// Payments returns a FetchFunc over the available payment packages.
func (f *catalogFetcher) Payments(progress ProgressFunc) FetchFunc[models.AvailablePayment] {
	return func(ctx context.Context, _ []models.AvailablePayment) ([]models.AvailablePayment, error) {
		return listResource[models.AvailablePayment](ctx, f, resourcePayments, progress)
	}
}

// Events returns a cache-aware FetchFunc over the event collection.
//
// Before materializing an event fully, the processor checks whether the
// cached copy's date_modified is at least as recent as the candidate's; if so
// the cached copy is returned unchanged and the per-event variations request
// is skipped entirely. The remote's modification timestamp is the sole trust
// signal, so this trades a potentially stale read for one less round trip per
// unchanged event.
func (f *catalogFetcher) Events(ignoreCache bool, progress ProgressFunc) FetchFunc[models.Event] {
	return func(ctx context.Context, cached []models.Event) ([]models.Event, error) {
		cachedByID := make(map[int64]models.Event, len(cached))
		if !ignoreCache {
			for _, e := range cached {
				cachedByID[e.ID] = e
			}
		}

		page := func(ctx context.Context, page, perPage int) ([]json.RawMessage, error) {
			return f.client.List(ctx, resourceEvents, page, perPage)
		}
		item := func(ctx context.Context, raw json.RawMessage, index, pageSize int) (models.Event, error) {
			var event models.Event
			if err := json.Unmarshal(raw, &event); err != nil {
				return event, fmt.Errorf("failed to parse event: %w", err)
			}

			if prev, ok := cachedByID[event.ID]; ok && !prev.DateModified.Time.Before(event.DateModified.Time) {
				if progress != nil {
					progress(index+1, pageSize)
				}
				return prev, nil
			}

			variations, err := f.variations(ctx, event.ID)
			if err != nil {
				return event, err
			}
			event.Variations = variations

			if progress != nil {
				progress(index+1, pageSize)
			}
			return event, nil
		}
		return FetchAll(ctx, f.perPage, page, item)
	}
}

func (f *catalogFetcher) variations(ctx context.Context, eventID int64) ([]models.EventVariation, error) {
	resource := fmt.Sprintf("%s/%d/variations", resourceEvents, eventID)
	return listResource[models.EventVariation](ctx, f, resource, nil)
}
