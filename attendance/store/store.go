package store

import (
	"context"
	"errors"
	"fmt"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/attendance/model"
	"axiapac.com/attendance/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store keeps events and summaries in the relational database.
type Store struct {
	dm *core.DatabaseManager
}

func New(dm *core.DatabaseManager) *Store {
	return &Store{dm: dm}
}

func (s *Store) Migrate() error {
	return s.dm.Migrate(&model.Event{}, &model.DailySummary{})
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", attendance.ErrStoreUnavailable, op, err)
}

func (s *Store) Append(ctx context.Context, event *model.Event) (bool, error) {
	var inserted bool
	err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "keyword"}}, // natural key
			DoNothing: true,
		}).Create(event)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, unavailable("append event", err)
	}
	return inserted, nil
}

func (s *Store) QueryByDay(ctx context.Context, date, employeeKey string) ([]model.Event, error) {
	var events []model.Event
	if err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("date = ? AND employee_key = ?", date, employeeKey).
			Order("id").
			Find(&events).Error
	}); err != nil {
		return nil, unavailable("query events", err)
	}
	return events, nil
}

func (s *Store) EmployeesOnDay(ctx context.Context, date string) ([]string, error) {
	var employees []string
	if err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Model(&model.Event{}).
			Where("date = ?", date).
			Distinct().
			Order("employee_key").
			Pluck("employee_key", &employees).Error
	}); err != nil {
		return nil, unavailable("list employees", err)
	}
	return employees, nil
}

// Upsert replaces the whole row for (date, employee_key).
func (s *Store) Upsert(ctx context.Context, summary *model.DailySummary) error {
	row := *summary
	row.ID = 0
	if err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "employee_key"}}, // conflict key
			UpdateAll: true,                                                    // update all fields on conflict
		}).Create(&row).Error
	}); err != nil {
		return unavailable("upsert summary", err)
	}
	return nil
}

// FindSummary returns nil when no row exists.
func (s *Store) FindSummary(ctx context.Context, date, employeeKey string) (*model.DailySummary, error) {
	var summary model.DailySummary
	err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("date = ? AND employee_key = ?", date, employeeKey).First(&summary).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find summary", err)
	}
	return &summary, nil
}

func (s *Store) SearchSummaries(ctx context.Context, params attendance.SummaryQuery) ([]model.DailySummary, int64, error) {
	var results []model.DailySummary
	var total int64

	err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		query := db.Model(&model.DailySummary{}).
			Where("date BETWEEN ? AND ?", params.StartDate, params.EndDate)
		if len(params.Employees) > 0 {
			query = query.Where("employee_key IN ?", params.Employees)
		}

		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return err
		}

		query = query.Order("date ASC, employee_key ASC")
		if params.Limit > 0 {
			query = query.Limit(params.Limit).Offset(params.Offset)
		}
		return query.Find(&results).Error
	})
	if err != nil {
		return nil, 0, unavailable("search summaries", err)
	}
	return results, total, nil
}
