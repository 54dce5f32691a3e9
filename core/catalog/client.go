package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client defines the interface for catalog REST operations.
//
// Resources are WooCommerce-style collection paths relative to the API root,
// e.g. "customers", "orders", "products" or "products/123/variations".
type Client interface {
	// List fetches one page of a resource collection. It returns the raw
	// items; callers decode them into their own types.
	List(ctx context.Context, resource string, page, perPage int) ([]json.RawMessage, error)
	// Post creates a resource and returns the raw server response.
	Post(ctx context.Context, resource string, body any) (json.RawMessage, error)
	// Delete removes a single resource by id.
	Delete(ctx context.Context, resource string, id int64) error
}

// NewClient creates a new catalog client based on the configuration.
func NewClient(cfg Config) (Client, error) {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid catalog base url: %w", err)
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	// Custom transport with strict timeouts. The engine treats a timeout as a
	// retryable run failure, so every stage of the request carries a deadline.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration, // Connection setup timeout
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration, // Wait for first response byte timeout
	}

	return &httpClient{
		base:   base,
		key:    cfg.ConsumerKey,
		secret: cfg.ConsumerSecret,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeoutDuration,
		},
	}, nil
}

type httpClient struct {
	base   string
	key    string
	secret string
	http   *http.Client
}

func (c *httpClient) List(ctx context.Context, resource string, page, perPage int) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	data, err := c.do(ctx, http.MethodGet, resource, q, nil)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s page %d: %w", resource, page, err)
	}
	return items, nil
}

func (c *httpClient) Post(ctx context.Context, resource string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, resource, nil, body)
}

func (c *httpClient) Delete(ctx context.Context, resource string, id int64) error {
	// WooCommerce soft-deletes unless force is set.
	q := url.Values{}
	q.Set("force", "true")

	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", resource, id), q, nil)
	return err
}

// do executes one request against the catalog API. The static credential pair
// is attached to every request as query parameters, which is how WooCommerce
// authenticates server-to-server calls over HTTPS.
//
// A resource may carry its own query string ("orders?customer=12"); those
// parameters are merged with the pagination and credential ones.
func (c *httpClient) do(ctx context.Context, method, resource string, query url.Values, body any) (json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}

	if path, rawQuery, ok := strings.Cut(resource, "?"); ok {
		extra, err := url.ParseQuery(rawQuery)
		if err != nil {
			return nil, fmt.Errorf("invalid resource query %q: %w", resource, err)
		}
		for k, vs := range extra {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
		resource = path
	}

	query.Set("consumer_key", c.key)
	query.Set("consumer_secret", c.secret)

	endpoint := fmt.Sprintf("%s/%s?%s", c.base, strings.TrimPrefix(resource, "/"), query.Encode())

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s body: %w", resource, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", resource, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request %s %s failed: %w", method, resource, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", resource, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("catalog request %s %s returned status %d: %s",
			method, resource, resp.StatusCode, truncate(string(data), 200))
	}

	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
