package model

import "time"

// DailySummary is derived from all events of one employee on one date.
// It is always rewritten as a whole.
type DailySummary struct {
	ID                   uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	Date                 string     `gorm:"column:date;type:varchar(10);not null;uniqueIndex:idx_attendance_summary_day" json:"date"`
	EmployeeKey          string     `gorm:"column:employee_key;type:varchar(64);not null;uniqueIndex:idx_attendance_summary_day" json:"employeeKey"`
	EmployeeName         string     `gorm:"column:employee_name;type:varchar(255)" json:"employeeName"`
	EntryTime            *ClockTime `gorm:"column:entry_time;type:varchar(5)" json:"entryTime"`
	ExitTime             *ClockTime `gorm:"column:exit_time;type:varchar(5)" json:"exitTime"`
	TotalPresenceMinutes int        `gorm:"column:total_presence_minutes;not null" json:"totalPresenceMinutes"`
	TaskStartTime        *ClockTime `gorm:"column:task_start_time;type:varchar(5)" json:"taskStartTime"`
	TaskEndTime          *ClockTime `gorm:"column:task_end_time;type:varchar(5)" json:"taskEndTime"`
	TaskMinutes          int        `gorm:"column:task_minutes;not null" json:"taskMinutes"`
	LunchMinutes         int        `gorm:"column:lunch_minutes;not null" json:"lunchMinutes"`
	BreakMinutes         int        `gorm:"column:break_minutes;not null" json:"breakMinutes"`
	BreakCount           int        `gorm:"column:break_count;not null" json:"breakCount"`
	NetWorkingMinutes    int        `gorm:"column:net_working_minutes;not null" json:"netWorkingMinutes"`
	EventCount           int        `gorm:"column:event_count;not null" json:"eventCount"`
	UpdatedAt            time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (DailySummary) TableName() string {
	return "attendance_summaries"
}

// Key returns the natural key "date|employee".
func (s *DailySummary) Key() string {
	return DayKey(s.Date, s.EmployeeKey)
}

func DayKey(date, employeeKey string) string {
	return date + "|" + employeeKey
}
