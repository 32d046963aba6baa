package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/attendance/model"
	"axiapac.com/attendance/utils"
	"github.com/google/uuid"
)

// Columns: event_id,date,time,employee_key,employee_name,text
const (
	colEventID = iota
	colDate
	colTime
	colEmployeeKey
	colEmployeeName
	colText
)

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("axiapac.com/attendance/import"))

type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

type Result struct {
	Recorded   int               `json:"recorded"`
	Duplicates int               `json:"duplicates"`
	Ignored    int               `json:"ignored"`
	Rejected   []RowError        `json:"rejected,omitempty"`
	Recomputed []string          `json:"recomputed"`
	Failed     map[string]string `json:"failed,omitempty"`
}

// Parse reads rows into inbound events. The header row is optional. Rows
// that cannot be used are returned as RowErrors with their 1-based line.
func Parse(r io.Reader) ([]attendance.Inbound, []RowError, error) {
	rows, err := utils.ParseCSV(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}

	var inbound []attendance.Inbound
	var rejected []RowError
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "event_id") {
			continue
		}
		in, err := parseRow(row)
		if err != nil {
			rejected = append(rejected, RowError{Line: i + 1, Err: err.Error()})
			continue
		}
		inbound = append(inbound, in)
	}
	return inbound, rejected, nil
}

func parseRow(row []string) (attendance.Inbound, error) {
	if len(row) < colText+1 {
		return attendance.Inbound{}, fmt.Errorf("expected %d columns, got %d", colText+1, len(row))
	}

	date, at, employee, text := row[colDate], row[colTime], row[colEmployeeKey], row[colText]
	if _, err := utils.ParseDate(date); err != nil {
		return attendance.Inbound{}, err
	}
	if _, err := model.ParseClock(at); err != nil {
		return attendance.Inbound{}, fmt.Errorf("%w: %w", attendance.ErrMalformedTime, err)
	}
	if employee == "" {
		return attendance.Inbound{}, fmt.Errorf("employee_key is required")
	}

	id := row[colEventID]
	if id == "" {
		// stable across re-imports of the same file
		id = uuid.NewSHA1(namespace, []byte(strings.Join([]string{date, at, employee, text}, "|"))).String()
	}

	return attendance.Inbound{
		EventID:      id,
		Date:         date,
		Time:         at,
		EmployeeKey:  employee,
		EmployeeName: row[colEmployeeName],
		Text:         text,
		Source:       model.SourceCSV,
	}, nil
}

// Import records every row and then recomputes each touched summary once.
func Import(ctx context.Context, svc *attendance.Service, r io.Reader, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	inbound, rejected, err := Parse(r)
	if err != nil {
		return nil, err
	}

	result := &Result{Rejected: rejected, Recomputed: []string{}}
	touched := make(map[string][]string)

	for _, in := range inbound {
		outcome, event, err := svc.Record(ctx, in)
		if err != nil {
			return result, fmt.Errorf("failed to record %s: %w", in.EventID, err)
		}
		switch outcome {
		case attendance.OutcomeRecorded:
			result.Recorded++
			touched[event.Date] = append(touched[event.Date], event.EmployeeKey)
		case attendance.OutcomeDuplicate:
			result.Duplicates++
		case attendance.OutcomeIgnored:
			result.Ignored++
		}
	}

	dates := make([]string, 0, len(touched))
	for date := range touched {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		res, err := svc.ReconcileDay(ctx, date, utils.Unique(touched[date]))
		if err != nil {
			return result, err
		}
		for _, emp := range res.Recomputed {
			result.Recomputed = append(result.Recomputed, model.DayKey(date, emp))
		}
		for emp, msg := range res.Failed {
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[model.DayKey(date, emp)] = msg
		}
	}

	logger.Info("import finished",
		"recorded", result.Recorded,
		"duplicates", result.Duplicates,
		"ignored", result.Ignored,
		"rejected", len(result.Rejected),
		"recomputed", len(result.Recomputed))
	return result, nil
}
