package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource serves rows from memory and never returns more than maxRows rows per call
func sliceSource(rows []int, maxRows int, calls *int) PageFunc[int] {
	return func(_ context.Context, offset, limit int) ([]int, error) {
		*calls++
		if limit > maxRows {
			limit = maxRows
		}
		if offset >= len(rows) {
			return nil, nil
		}
		end := offset + limit
		if end > len(rows) {
			end = len(rows)
		}
		return rows[offset:end], nil
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestAllRequestCount(t *testing.T) {
	cases := []struct {
		rows, pageSize, wantRequests int
	}{
		{0, 1000, 1},
		{1, 1000, 2},
		{1000, 1000, 2},
		{2500, 1000, 4},
		{3000, 1000, 4},
		{7, 3, 4},
	}
	for _, tc := range cases {
		calls := 0
		got, stats, err := All(context.Background(), tc.pageSize, sliceSource(seq(tc.rows), 1_000_000, &calls))
		require.NoError(t, err)
		assert.Len(t, got, tc.rows)
		assert.Equal(t, tc.wantRequests, calls, "rows=%d page=%d", tc.rows, tc.pageSize)
		assert.Equal(t, calls, stats.Requests)
		assert.Equal(t, tc.rows, stats.Rows)
	}
}

func TestAllToleratesSmallerBackendCap(t *testing.T) {
	calls := 0
	got, _, err := All(context.Background(), 1000, sliceSource(seq(2500), 400, &calls))
	require.NoError(t, err)
	require.Len(t, got, 2500)
	assert.Equal(t, seq(2500), got)
	assert.Equal(t, 8, calls) // 7 full-or-partial pages of 400 plus the empty page
}

func TestAllAbortsOnPageError(t *testing.T) {
	boom := errors.New("connection reset")
	calls := 0
	fetch := func(ctx context.Context, offset, limit int) ([]int, error) {
		calls++
		if offset >= 20 {
			return nil, boom
		}
		return seq(10), nil
	}

	got, _, err := All[int](context.Background(), 10, fetch)
	assert.Nil(t, got)
	require.ErrorIs(t, err, boom)

	var scanErr *Error
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, 20, scanErr.Offset)
	assert.Equal(t, 3, calls)
}

func TestAllHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, _, err := All(ctx, 10, sliceSource(seq(50), 10, &calls))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestAllRejectsBadPageSize(t *testing.T) {
	calls := 0
	_, _, err := All(context.Background(), 0, sliceSource(nil, 10, &calls))
	assert.Error(t, err)
}
