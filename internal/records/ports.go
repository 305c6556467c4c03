package records

import (
	"context"
	"errors"

	"mfpreport/internal/core"
)

var (
	// ErrEmptyLog is returned by LastDate when the log holds no data rows.
	ErrEmptyLog = errors.New("record log is empty")
	// ErrMalformedTail is returned by LastDate when the final row cannot be
	// parsed, e.g. after a torn write.
	ErrMalformedTail = errors.New("record log tail is malformed")
	// ErrDuplicateTotal is returned by stores that enforce one total per
	// (date, key) when a second one is written.
	ErrDuplicateTotal = errors.New("duplicate total for date")
)

// Ports for record store adapters.
type (
	Tail interface {
		// LastDate returns the date of the final persisted row.
		LastDate(ctx context.Context) (core.Date, error)
	}

	Appender interface {
		// AppendDay commits all rows of one day as a single unit.
		AppendDay(ctx context.Context, date core.Date, rows []core.EventRecord) error
	}

	Reader interface {
		// ReadAll returns every row in insertion order.
		ReadAll(ctx context.Context) ([]core.EventRecord, error)
	}

	Store interface {
		Tail
		Appender
		Reader
	}
)
