package core

import (
	"fmt"
	"sort"

	"axiapac.com/attendance/attendance/model"
	"axiapac.com/attendance/utils"
)

type timedEvent struct {
	at    model.ClockTime
	event *model.Event
}

// Calculate derives the summary for one employee and date from the full,
// unordered event set. Missing keywords leave times nil and durations 0;
// only an unparseable event time is an error.
func Calculate(date, employeeKey string, events []model.Event) (*model.DailySummary, error) {
	timed := make([]timedEvent, 0, len(events))
	for i := range events {
		at, err := model.ParseClock(events[i].Time)
		if err != nil {
			return nil, fmt.Errorf("%w: event %s (%s) at %q", ErrMalformedTime, events[i].EventID, events[i].Keyword, events[i].Time)
		}
		timed = append(timed, timedEvent{at: at, event: &events[i]})
	}

	// ties keep input order
	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].at < timed[j].at
	})

	byKeyword := utils.GroupBy(timed, func(t timedEvent) model.Keyword { return t.event.Keyword })
	times := func(k model.Keyword) []model.ClockTime {
		return utils.Map(byKeyword[k], func(t timedEvent) model.ClockTime { return t.at })
	}

	summary := &model.DailySummary{
		Date:        date,
		EmployeeKey: employeeKey,
		EventCount:  len(events),
	}
	for _, t := range timed {
		if t.event.EmployeeName != "" {
			summary.EmployeeName = t.event.EmployeeName
		}
	}

	summary.EntryTime = first(times(model.Entry))
	summary.ExitTime = last(times(model.Exit))
	summary.TotalPresenceMinutes = span(summary.EntryTime, summary.ExitTime)

	summary.TaskStartTime = first(times(model.TaskStart))
	summary.TaskEndTime = last(times(model.TaskEnd))
	summary.TaskMinutes = span(summary.TaskStartTime, summary.TaskEndTime)

	// Only the first lunch start and the first lunch end are consulted.
	summary.LunchMinutes = span(first(times(model.LunchStart)), first(times(model.LunchEnd)))

	summary.BreakMinutes, summary.BreakCount = pairBreaks(times(model.BreakStart), times(model.BreakEnd))

	summary.NetWorkingMinutes = max(0, summary.TaskMinutes-summary.LunchMinutes-summary.BreakMinutes)

	return summary, nil
}

// pairBreaks matches each start, in ascending order, with the earliest unused
// end strictly after it. Starts without such an end are not counted.
// Both slices must be sorted ascending.
func pairBreaks(starts, ends []model.ClockTime) (minutes, count int) {
	used := make([]bool, len(ends))
	for _, start := range starts {
		for i, end := range ends {
			if used[i] || end <= start {
				continue
			}
			used[i] = true
			minutes += int(end - start)
			count++
			break
		}
	}
	return minutes, count
}

func first(times []model.ClockTime) *model.ClockTime {
	if len(times) == 0 {
		return nil
	}
	return utils.Ptr(times[0])
}

func last(times []model.ClockTime) *model.ClockTime {
	if len(times) == 0 {
		return nil
	}
	return utils.Ptr(times[len(times)-1])
}

// span is end-start when both are present and end is later, otherwise 0.
func span(start, end *model.ClockTime) int {
	if start == nil || end == nil || *end <= *start {
		return 0
	}
	return int(*end - *start)
}
