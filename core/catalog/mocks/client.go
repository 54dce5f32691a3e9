package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of catalog.Client
type Client struct {
	mock.Mock
}

func (m *Client) List(ctx context.Context, resource string, page, perPage int) ([]json.RawMessage, error) {
	args := m.Called(ctx, resource, page, perPage)
	if items, ok := args.Get(0).([]json.RawMessage); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) Post(ctx context.Context, resource string, body any) (json.RawMessage, error) {
	args := m.Called(ctx, resource, body)
	if raw, ok := args.Get(0).(json.RawMessage); ok {
		return raw, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) Delete(ctx context.Context, resource string, id int64) error {
	args := m.Called(ctx, resource, id)
	return args.Error(0)
}
