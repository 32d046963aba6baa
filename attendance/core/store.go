package core

import (
	"context"
	"errors"
	"log/slog"

	"axiapac.com/attendance/attendance/model"
)

// EventStore is the append-only raw event log.
type EventStore interface {
	// Append stores the event. inserted is false when an event with the same
	// (EventID, Keyword) is already stored.
	Append(ctx context.Context, event *model.Event) (inserted bool, err error)
	QueryByDay(ctx context.Context, date, employeeKey string) ([]model.Event, error)
	EmployeesOnDay(ctx context.Context, date string) ([]string, error)
}

// SummarySink persists whole summary rows keyed by (Date, EmployeeKey).
type SummarySink interface {
	Upsert(ctx context.Context, summary *model.DailySummary) error
}

// MultiSink writes every summary to each sink in order. All sinks are
// attempted; the errors are joined.
type MultiSink []SummarySink

func (m MultiSink) Upsert(ctx context.Context, summary *model.DailySummary) error {
	var errs []error
	for _, s := range m {
		if err := s.Upsert(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EventAppender is the write half of an EventStore.
type EventAppender interface {
	Append(ctx context.Context, event *model.Event) (inserted bool, err error)
}

// MirroredEvents reads from and appends to the embedded store, then copies
// each newly inserted event to the mirrors. A mirror failure is logged and does not
// fail the append.
type MirroredEvents struct {
	EventStore
	Mirrors []EventAppender
	Logger  *slog.Logger
}

func (m *MirroredEvents) Append(ctx context.Context, event *model.Event) (bool, error) {
	inserted, err := m.EventStore.Append(ctx, event)
	if err != nil || !inserted {
		return inserted, err
	}
	for _, mirror := range m.Mirrors {
		if _, err := mirror.Append(ctx, event); err != nil {
			logger := m.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("failed to mirror event", "eventId", event.EventID, "keyword", event.Keyword, "error", err)
		}
	}
	return true, nil
}

type SummaryQuery struct {
	StartDate string
	EndDate   string
	// Employees restricts the result when not empty.
	Employees []string
	// Limit <= 0 returns every match.
	Limit  int
	Offset int
}

// SummaryReader serves stored summaries back to the API.
type SummaryReader interface {
	// FindSummary returns nil without error when no row exists.
	FindSummary(ctx context.Context, date, employeeKey string) (*model.DailySummary, error)
	SearchSummaries(ctx context.Context, query SummaryQuery) ([]model.DailySummary, int64, error)
}
