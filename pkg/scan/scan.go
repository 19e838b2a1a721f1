// Package scan reads an entire table through a paged source.
package scan

import (
	"context"
	"errors"
	"fmt"
)

// PageFunc fetches up to limit rows starting at offset. The source may return
// fewer rows than asked for; an empty page marks the end.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Stats describes a finished scan
type Stats struct {
	Requests int // page requests issued, including the final empty one
	Rows     int
}

// Error reports the page that failed. No rows are returned with it.
type Error struct {
	Offset int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scan failed at offset %d: %v", e.Offset, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// All fetches every row from fetch, pageSize rows at a time, until a page
// comes back empty. The offset advances by the number of rows actually
// received so a source that caps pages below pageSize never skips rows.
func All[T any](ctx context.Context, pageSize int, fetch PageFunc[T]) ([]T, Stats, error) {
	var stats Stats
	if pageSize <= 0 {
		return nil, stats, errors.New("page size must be positive")
	}

	var out []T
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, &Error{Offset: offset, Err: err}
		}

		page, err := fetch(ctx, offset, pageSize)
		stats.Requests++
		if err != nil {
			return nil, stats, &Error{Offset: offset, Err: err}
		}
		if len(page) == 0 {
			break
		}

		out = append(out, page...)
		offset += len(page)
	}

	stats.Rows = len(out)
	return out, stats, nil
}
