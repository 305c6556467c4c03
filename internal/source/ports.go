package source

import (
	"context"

	"mfpreport/internal/core"
)

// DayFetcher returns one diary day from the upstream event source. A day
// with nothing logged is an empty Day, not an error.
type DayFetcher interface {
	FetchDay(ctx context.Context, date core.Date) (core.Day, error)
}
