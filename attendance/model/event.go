package model

import (
	"time"

	"gorm.io/datatypes"
)

// Event is one raw attendance message. Rows are append-only.
type Event struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"-"`
	EventID      string         `gorm:"column:event_id;type:varchar(128);not null;uniqueIndex:idx_attendance_event_keyword" json:"eventId"`
	Keyword      Keyword        `gorm:"column:keyword;type:varchar(20);not null;uniqueIndex:idx_attendance_event_keyword" json:"keyword"`
	Date         string         `gorm:"column:date;type:varchar(10);not null;index:idx_attendance_event_day" json:"date"`
	Time         string         `gorm:"column:time;type:varchar(8);not null" json:"time"`
	EmployeeKey  string         `gorm:"column:employee_key;type:varchar(64);not null;index:idx_attendance_event_day" json:"employeeKey"`
	EmployeeName string         `gorm:"column:employee_name;type:varchar(255)" json:"employeeName,omitempty"`
	Text         string         `gorm:"column:text;type:text" json:"text,omitempty"`
	Source       string         `gorm:"column:source;type:varchar(20)" json:"source"`
	Channel      string         `gorm:"column:channel;type:varchar(64)" json:"channel,omitempty"`
	Reference    string         `gorm:"column:reference;type:varchar(64)" json:"reference,omitempty"` // source message id, e.g. Slack ts
	Payload      datatypes.JSON `gorm:"column:payload" json:"-"`
	CreatedAt    time.Time      `gorm:"column:created_at;<-:create" json:"createdAt"`
}

func (Event) TableName() string {
	return "attendance_events"
}

const (
	SourceSlack = "slack"
	SourceAPI   = "api"
	SourceCSV   = "csv"
)
