package workbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/attendance/model"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "Summary"
	EventsSheet  = "Events"
)

var summaryHeader = []interface{}{
	"Date", "Employee", "Name", "Entry", "Exit", "Presence",
	"Task Start", "Task End", "Task", "Lunch", "Break", "Breaks",
	"Net Working", "Events", "Updated At",
}

var eventsHeader = []interface{}{
	"Event ID", "Keyword", "Date", "Time", "Employee", "Name",
	"Text", "Source", "Channel", "Reference", "Received At",
}

// Workbook is a spreadsheet backed event store and summary sink. Every
// mutation is saved to path before returning. An empty path keeps the
// workbook in memory.
type Workbook struct {
	mu          sync.Mutex
	path        string
	file        *excelize.File
	summaries   map[string]int      // day key -> row
	summaryRows int
	events      map[string]struct{} // event id|keyword
	eventRows   int
}

// Open loads path, or starts a new workbook when the file does not exist.
func Open(path string) (*Workbook, error) {
	var f *excelize.File
	if _, err := os.Stat(path); path != "" && err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
		}
	} else {
		f = excelize.NewFile()
	}

	w := &Workbook{
		path:      path,
		file:      f,
		summaries: make(map[string]int),
		events:    make(map[string]struct{}),
	}
	if err := w.prepare(); err != nil {
		f.Close()
		return nil, err
	}
	if err := w.index(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Workbook) prepare() error {
	bold, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for _, sheet := range []struct {
		name   string
		header []interface{}
	}{{SummarySheet, summaryHeader}, {EventsSheet, eventsHeader}} {
		idx, err := w.file.GetSheetIndex(sheet.name)
		if err != nil {
			return err
		}
		if idx >= 0 {
			continue
		}
		if _, err := w.file.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
		}
		if err := w.file.SetSheetRow(sheet.name, "A1", &sheet.header); err != nil {
			return err
		}
		if err := w.file.SetRowStyle(sheet.name, 1, 1, bold); err != nil {
			return err
		}
		last, _ := excelize.ColumnNumberToName(len(sheet.header))
		if err := w.file.SetColWidth(sheet.name, "A", last, 14); err != nil {
			return err
		}
	}

	// new files start with a default sheet
	if idx, _ := w.file.GetSheetIndex("Sheet1"); idx >= 0 {
		if err := w.file.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	if idx, _ := w.file.GetSheetIndex(SummarySheet); idx >= 0 {
		w.file.SetActiveSheet(idx)
	}
	return nil
}

func (w *Workbook) index() error {
	rows, err := w.file.GetRows(SummarySheet)
	if err != nil {
		return err
	}
	w.summaryRows = max(len(rows), 1)
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		w.summaries[model.DayKey(row[0], row[1])] = i + 1
	}

	rows, err = w.file.GetRows(EventsSheet)
	if err != nil {
		return err
	}
	w.eventRows = max(len(rows), 1)
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		w.events[eventKey(row[0], model.Keyword(row[1]))] = struct{}{}
	}
	return nil
}

func eventKey(eventID string, keyword model.Keyword) string {
	return eventID + "|" + string(keyword)
}

func (w *Workbook) save() error {
	if w.path == "" {
		return nil
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("%w: save workbook: %w", attendance.ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert writes summary to its row, replacing every column.
func (w *Workbook) Upsert(_ context.Context, summary *model.DailySummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row, ok := w.summaries[summary.Key()]
	if !ok {
		row = w.summaryRows + 1
	}

	updatedAt := summary.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	values := []interface{}{
		summary.Date,
		summary.EmployeeKey,
		summary.EmployeeName,
		model.FormatClock(summary.EntryTime),
		model.FormatClock(summary.ExitTime),
		attendance.FormatDuration(summary.TotalPresenceMinutes),
		model.FormatClock(summary.TaskStartTime),
		model.FormatClock(summary.TaskEndTime),
		attendance.FormatDuration(summary.TaskMinutes),
		attendance.FormatDuration(summary.LunchMinutes),
		attendance.FormatDuration(summary.BreakMinutes),
		summary.BreakCount,
		attendance.FormatDuration(summary.NetWorkingMinutes),
		summary.EventCount,
		updatedAt.Format(time.RFC3339),
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	var previous []interface{}
	if ok {
		if previous, err = w.rowValues(SummarySheet, row, len(summaryHeader)); err != nil {
			return err
		}
	}

	if err := w.file.SetSheetRow(SummarySheet, cell, &values); err != nil {
		return fmt.Errorf("%w: write summary row: %w", attendance.ErrStoreUnavailable, err)
	}
	if err := w.save(); err != nil {
		// keep the previous row so readers never see a summary that was not stored
		if ok {
			_ = w.file.SetSheetRow(SummarySheet, cell, &previous)
		} else {
			_ = w.file.RemoveRow(SummarySheet, row)
		}
		return err
	}
	if !ok {
		w.summaryRows = row
		w.summaries[summary.Key()] = row
	}
	return nil
}

// rowValues reads n cells of row, keeping integer cells numeric.
func (w *Workbook) rowValues(sheet string, row, n int) ([]interface{}, error) {
	values := make([]interface{}, n)
	for col := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return nil, err
		}
		v, err := w.file.GetCellValue(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s row: %w", attendance.ErrStoreUnavailable, sheet, err)
		}
		if i, err := strconv.Atoi(v); err == nil {
			values[col] = i
		} else {
			values[col] = v
		}
	}
	return values, nil
}

// Append adds event to the Events sheet unless (event id, keyword) is
// already present.
func (w *Workbook) Append(_ context.Context, event *model.Event) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := eventKey(event.EventID, event.Keyword)
	if _, ok := w.events[key]; ok {
		return false, nil
	}

	receivedAt := event.CreatedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	values := []interface{}{
		event.EventID,
		string(event.Keyword),
		event.Date,
		event.Time,
		event.EmployeeKey,
		event.EmployeeName,
		event.Text,
		event.Source,
		event.Channel,
		event.Reference,
		receivedAt.Format(time.RFC3339),
	}

	row := w.eventRows + 1
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return false, err
	}
	if err := w.file.SetSheetRow(EventsSheet, cell, &values); err != nil {
		return false, fmt.Errorf("%w: write event row: %w", attendance.ErrStoreUnavailable, err)
	}
	if err := w.save(); err != nil {
		// an unsaved event must not be reported as a duplicate on retry
		_ = w.file.RemoveRow(EventsSheet, row)
		return false, err
	}
	w.eventRows = row
	w.events[key] = struct{}{}
	return true, nil
}

func (w *Workbook) readEvents(match func(row []string) bool) ([]model.Event, error) {
	rows, err := w.file.GetRows(EventsSheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read events: %w", attendance.ErrStoreUnavailable, err)
	}

	var events []model.Event
	for i, row := range rows {
		if i == 0 || len(row) < 5 || !match(row) {
			continue
		}
		row = append(row, make([]string, len(eventsHeader)-len(row))...)
		event := model.Event{
			EventID:      row[0],
			Keyword:      model.Keyword(row[1]),
			Date:         row[2],
			Time:         row[3],
			EmployeeKey:  row[4],
			EmployeeName: row[5],
			Text:         row[6],
			Source:       row[7],
			Channel:      row[8],
			Reference:    row[9],
		}
		if t, err := time.Parse(time.RFC3339, row[10]); err == nil {
			event.CreatedAt = t
		}
		events = append(events, event)
	}
	return events, nil
}

func (w *Workbook) QueryByDay(_ context.Context, date, employeeKey string) ([]model.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.readEvents(func(row []string) bool {
		return row[2] == date && row[4] == employeeKey
	})
}

func (w *Workbook) EmployeesOnDay(_ context.Context, date string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	events, err := w.readEvents(func(row []string) bool { return row[2] == date })
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var employees []string
	for _, e := range events {
		if _, ok := seen[e.EmployeeKey]; ok {
			continue
		}
		seen[e.EmployeeKey] = struct{}{}
		employees = append(employees, e.EmployeeKey)
	}
	sort.Strings(employees)
	return employees, nil
}

// FindSummary reads back the row for (date, employee). It returns nil when
// the row does not exist.
func (w *Workbook) FindSummary(_ context.Context, date, employeeKey string) (*model.DailySummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	row, ok := w.summaries[model.DayKey(date, employeeKey)]
	if !ok {
		return nil, nil
	}
	return w.readSummary(row)
}

func (w *Workbook) readSummary(row int) (*model.DailySummary, error) {
	values := make([]string, len(summaryHeader))
	for col := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return nil, err
		}
		if values[col], err = w.file.GetCellValue(SummarySheet, cell); err != nil {
			return nil, fmt.Errorf("%w: read summary row: %w", attendance.ErrStoreUnavailable, err)
		}
	}
	return parseSummary(values)
}

// SearchSummaries returns matching rows ordered by date then employee.
func (w *Workbook) SearchSummaries(_ context.Context, query attendance.SummaryQuery) ([]model.DailySummary, int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var rows []int
	for key, row := range w.summaries {
		date, employee, _ := strings.Cut(key, "|")
		if date < query.StartDate || date > query.EndDate {
			continue
		}
		if len(query.Employees) > 0 && !slices.Contains(query.Employees, employee) {
			continue
		}
		rows = append(rows, row)
	}

	results := make([]model.DailySummary, 0, len(rows))
	for _, row := range rows {
		s, err := w.readSummary(row)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, *s)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Date != results[j].Date {
			return results[i].Date < results[j].Date
		}
		return results[i].EmployeeKey < results[j].EmployeeKey
	})

	total := int64(len(results))
	if query.Limit > 0 {
		start := min(query.Offset, len(results))
		end := min(start+query.Limit, len(results))
		results = results[start:end]
	}
	return results, total, nil
}

func parseSummary(values []string) (*model.DailySummary, error) {
	var errs []error
	clock := func(s string) *model.ClockTime {
		if s == "" || s == model.Absent {
			return nil
		}
		c, err := model.ParseClock(s)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		return &c
	}
	duration := func(s string) int {
		m, err := attendance.ParseDuration(s)
		if err != nil {
			errs = append(errs, err)
		}
		return m
	}
	number := func(s string) int {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid number %q", s))
		}
		return n
	}

	s := &model.DailySummary{
		Date:                 values[0],
		EmployeeKey:          values[1],
		EmployeeName:         values[2],
		EntryTime:            clock(values[3]),
		ExitTime:             clock(values[4]),
		TotalPresenceMinutes: duration(values[5]),
		TaskStartTime:        clock(values[6]),
		TaskEndTime:          clock(values[7]),
		TaskMinutes:          duration(values[8]),
		LunchMinutes:         duration(values[9]),
		BreakMinutes:         duration(values[10]),
		BreakCount:           number(values[11]),
		NetWorkingMinutes:    duration(values[12]),
		EventCount:           number(values[13]),
	}
	if t, err := time.Parse(time.RFC3339, values[14]); err == nil {
		s.UpdatedAt = t
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("malformed summary row %s: %w", s.Key(), err)
	}
	return s, nil
}

// WriteTo streams the workbook as xlsx.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.WriteTo(out)
}

func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
