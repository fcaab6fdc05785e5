// Package paginate walks paginated collections until they are exhausted.
package paginate

import (
	"context"
	"fmt"
)

// Page is one page of a collection. Next is the token for the following page
// and is only meaningful when More is true.
type Page[T any, K any] struct {
	Items []T
	Next  K
	More  bool
}

// FetchFunc fetches the page identified by token.
type FetchFunc[T any, K any] func(ctx context.Context, token K) (Page[T, K], error)

// Walk fetches pages starting at first and returns the concatenation of all
// items in server order. It stops at the first empty page or at the first page
// that reports no next token. A failed page fails the whole walk.
func Walk[T any, K any](ctx context.Context, first K, fetch FetchFunc[T, K]) ([]T, error) {
	var all []T
	token := first

	for pageNumber := 1; ; pageNumber++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", pageNumber, err)
		}

		if len(page.Items) == 0 {
			break
		}
		all = append(all, page.Items...)

		if !page.More {
			break
		}
		token = page.Next
	}

	return all, nil
}

// Offset adapts a numbered-page fetch into a FetchFunc. Pages are requested
// 1, 2, 3, ... until one comes back empty.
func Offset[T any](fetch func(ctx context.Context, page int) ([]T, error)) FetchFunc[T, int] {
	return func(ctx context.Context, page int) (Page[T, int], error) {
		items, err := fetch(ctx, page)
		if err != nil {
			return Page[T, int]{}, err
		}
		return Page[T, int]{Items: items, Next: page + 1, More: true}, nil
	}
}
