package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"axiapac.com/attendance/attendance/model"
)

const DefaultRecomputeTimeout = 30 * time.Second

type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Inbound is an event as delivered by a transport, before classification.
type Inbound struct {
	EventID      string
	Date         string
	Time         string
	EmployeeKey  string
	EmployeeName string
	// Keyword is used as is when set, otherwise Text is classified.
	Keyword   model.Keyword
	Text      string
	Source    string
	Channel   string
	Reference string
	Payload   []byte
}

// Notifier is told about the result of background recomputations.
type Notifier interface {
	Recomputed(ctx context.Context, trigger *model.Event, summary *model.DailySummary)
	RecomputeFailed(ctx context.Context, trigger *model.Event, err error)
}

type ServiceOptions struct {
	Logger           *slog.Logger
	Notifier         Notifier
	RecomputeTimeout time.Duration
}

// Service runs the pipeline classify -> deduplicate -> append -> recompute -> upsert.
type Service struct {
	events   EventStore
	sink     SummarySink
	dedup    *Deduplicator
	locks    *KeyedMutex
	log      *slog.Logger
	notifier Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewService(events EventStore, sink SummarySink, dedup *Deduplicator, opts ServiceOptions) *Service {
	if dedup == nil {
		dedup = NewDeduplicator(DefaultDedupCapacity)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RecomputeTimeout
	if timeout <= 0 {
		timeout = DefaultRecomputeTimeout
	}
	return &Service{
		events:   events,
		sink:     sink,
		dedup:    dedup,
		locks:    NewKeyedMutex(),
		log:      logger,
		notifier: opts.Notifier,
		timeout:  timeout,
	}
}

func (s *Service) Classify(text string) (model.Keyword, bool) {
	return Classify(text)
}

// IsDuplicate checks and marks the (eventID, keyword) pair.
func (s *Service) IsDuplicate(eventID string, keyword model.Keyword) bool {
	return s.dedup.CheckAndMark(eventID, keyword)
}

// Record classifies, deduplicates and appends one inbound event. The summary
// is not touched.
func (s *Service) Record(ctx context.Context, in Inbound) (Outcome, *model.Event, error) {
	keyword := in.Keyword
	if keyword == model.None {
		k, ok := Classify(in.Text)
		if !ok {
			return OutcomeIgnored, nil, nil
		}
		keyword = k
	}
	if !keyword.Valid() {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownKeyword, keyword)
	}

	if s.dedup.CheckAndMark(in.EventID, keyword) {
		s.log.Debug("duplicate event", "eventId", in.EventID, "keyword", keyword)
		return OutcomeDuplicate, nil, nil
	}

	event := &model.Event{
		EventID:      in.EventID,
		Keyword:      keyword,
		Date:         in.Date,
		Time:         in.Time,
		EmployeeKey:  in.EmployeeKey,
		EmployeeName: in.EmployeeName,
		Text:         in.Text,
		Source:       in.Source,
		Channel:      in.Channel,
		Reference:    in.Reference,
		Payload:      in.Payload,
	}

	inserted, err := s.events.Append(ctx, event)
	if err != nil {
		// let an external retry through
		s.dedup.Forget(in.EventID, keyword)
		return "", nil, storeError("append event", err)
	}
	if !inserted {
		s.log.Debug("event already stored", "eventId", in.EventID, "keyword", keyword)
		return OutcomeDuplicate, nil, nil
	}

	s.log.Info("event recorded",
		"eventId", event.EventID,
		"keyword", event.Keyword,
		"date", event.Date,
		"time", event.Time,
		"employee", event.EmployeeKey)
	return OutcomeRecorded, event, nil
}

// Ingest records the event and, when it is new, schedules the recompute of
// its summary in the background.
func (s *Service) Ingest(ctx context.Context, in Inbound) (Outcome, error) {
	outcome, event, err := s.Record(ctx, in)
	if err != nil {
		return outcome, err
	}
	if outcome == OutcomeRecorded {
		s.Schedule(event)
	}
	return outcome, nil
}

// Schedule recomputes the summary touched by event on its own goroutine,
// detached from any request context.
func (s *Service) Schedule(event *model.Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		summary, err := s.RecomputeSummary(ctx, event.Date, event.EmployeeKey)
		if err != nil {
			s.log.Error("recompute failed",
				"date", event.Date,
				"employee", event.EmployeeKey,
				"eventId", event.EventID,
				"error", err)
			if s.notifier != nil {
				s.notifier.RecomputeFailed(ctx, event, err)
			}
			return
		}
		if s.notifier != nil {
			s.notifier.Recomputed(ctx, event, summary)
		}
	}()
}

// Wait blocks until every scheduled recompute has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// RecomputeSummary rebuilds and upserts the summary for one employee and
// date. Calls for the same key are serialized. Nothing is written when any
// step fails.
func (s *Service) RecomputeSummary(ctx context.Context, date, employeeKey string) (*model.DailySummary, error) {
	unlock := s.locks.Lock(model.DayKey(date, employeeKey))
	defer unlock()

	events, err := s.events.QueryByDay(ctx, date, employeeKey)
	if err != nil {
		return nil, storeError("query events", err)
	}

	summary, err := Calculate(date, employeeKey, events)
	if err != nil {
		return nil, err
	}

	if err := s.sink.Upsert(ctx, summary); err != nil {
		return nil, storeError("upsert summary", err)
	}

	s.log.Info("summary recomputed",
		"date", date,
		"employee", employeeKey,
		"events", summary.EventCount,
		"net", FormatDuration(summary.NetWorkingMinutes))
	return summary, nil
}

type ReconcileResult struct {
	Date       string            `json:"date"`
	Recomputed []string          `json:"recomputed"`
	Failed     map[string]string `json:"failed,omitempty"`
}

// ReconcileDay recomputes the given employees for date, or every employee
// with events on that date when employees is empty. Failures are collected
// per employee.
func (s *Service) ReconcileDay(ctx context.Context, date string, employees []string) (*ReconcileResult, error) {
	if len(employees) == 0 {
		found, err := s.events.EmployeesOnDay(ctx, date)
		if err != nil {
			return nil, storeError("list employees", err)
		}
		employees = found
	}

	result := &ReconcileResult{Date: date, Recomputed: []string{}}
	for _, emp := range employees {
		if _, err := s.RecomputeSummary(ctx, date, emp); err != nil {
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[emp] = err.Error()
			continue
		}
		result.Recomputed = append(result.Recomputed, emp)
	}
	return result, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
