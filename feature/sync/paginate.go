package sync

import "context"

// PageFunc fetches one page of raw remote items.
type PageFunc[R any] func(ctx context.Context, page, perPage int) ([]R, error)

// ItemFunc materializes one raw item. index and pageSize form the progress
// pair for the current page, letting callers report fine-grained progress
// without knowing the total count in advance.
type ItemFunc[R, T any] func(ctx context.Context, raw R, index, pageSize int) (T, error)

// FetchAll walks pages 1..N strictly sequentially until a page comes back
// short. A full page always triggers a lookahead fetch of the next one, so a
// remote set whose size is an exact multiple of perPage costs one extra,
// empty-result request. Requests are never issued concurrently; a single
// outstanding connection keeps rate limits predictable.
func FetchAll[R, T any](ctx context.Context, perPage int, fetchPage PageFunc[R], process ItemFunc[R, T]) ([]T, error) {
	var out []T

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := fetchPage(ctx, page, perPage)
		if err != nil {
			return nil, err
		}

		for i, raw := range items {
			materialized, err := process(ctx, raw, i, len(items))
			if err != nil {
				return nil, err
			}
			out = append(out, materialized)
		}

		if len(items) < perPage {
			return out, nil
		}
	}
}
