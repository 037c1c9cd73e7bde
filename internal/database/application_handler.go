package database

import (
	"context"
	"math"
	"time"

	"clansite/internal/api/dto"
	"clansite/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const noPopularRole = "no data"

type ApplicationStore struct {
	db *gorm.DB
}

func NewApplicationStore(db *gorm.DB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

func (s *ApplicationStore) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, errDatabaseNotInitialised
	}
	if ctx != nil {
		return s.db.WithContext(ctx), nil
	}
	return s.db, nil
}

// CanSubmit reports whether ip may file another application at now.
func (s *ApplicationStore) CanSubmit(ctx context.Context, ip string, now time.Time, cooldown time.Duration) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	var limits []domain.ApplicationLimit
	if err := db.Where("ip_address = ?", ip).Limit(1).Find(&limits).Error; err != nil {
		return false, err
	}
	if len(limits) == 0 {
		return true, nil
	}

	return now.Sub(limits[0].LastApplicationTime) >= cooldown, nil
}

// Save stores the application and bumps the per-IP submission counter.
func (s *ApplicationStore) Save(ctx context.Context, app domain.Application) (uint64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	app.ID = 0
	app.Timestamp = app.Timestamp.UTC()
	if app.Status == "" {
		app.Status = domain.ApplicationStatusNew
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&app).Error; err != nil {
			return err
		}

		limit := domain.ApplicationLimit{
			IPAddress:           app.IPAddress,
			LastApplicationTime: app.Timestamp,
			ApplicationCount:    1,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ip_address"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_application_time": app.Timestamp,
				"application_count":     gorm.Expr("application_limits.application_count + 1"),
			}),
		}).Create(&limit).Error
	})
	if err != nil {
		return 0, err
	}

	return app.ID, nil
}

func (s *ApplicationStore) List(ctx context.Context) ([]domain.Application, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var apps []domain.Application
	if err := db.Order("timestamp DESC").Order("id DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *ApplicationStore) Statistics(ctx context.Context, now time.Time) (dto.ApplicationStatistics, error) {
	stats := dto.ApplicationStatistics{Roles: map[string]int64{}}

	db, err := s.conn(ctx)
	if err != nil {
		return stats, err
	}

	if stats.Total, err = countApplicationsSince(db, time.Time{}); err != nil {
		return stats, err
	}
	if stats.Today, err = countApplicationsSince(db, startOfDay(now)); err != nil {
		return stats, err
	}
	if stats.Week, err = countApplicationsSince(db, now.Add(-7*24*time.Hour)); err != nil {
		return stats, err
	}
	if stats.Roles, err = groupApplicationCounts(db, "role"); err != nil {
		return stats, err
	}

	return stats, nil
}

func (s *ApplicationStore) ExtendedStatistics(ctx context.Context, now time.Time) (dto.ExtendedApplicationStatistics, error) {
	base, err := s.Statistics(ctx, now)
	stats := dto.ExtendedApplicationStatistics{
		ApplicationStatistics: base,
		Statuses:              map[string]int64{},
		PopularRole:           noPopularRole,
	}
	if err != nil {
		return stats, err
	}

	db, err := s.conn(ctx)
	if err != nil {
		return stats, err
	}

	if stats.Hour, err = countApplicationsSince(db, now.Add(-time.Hour)); err != nil {
		return stats, err
	}
	if stats.Daily, err = countApplicationsSince(db, now.Add(-24*time.Hour)); err != nil {
		return stats, err
	}
	if stats.Statuses, err = groupApplicationCounts(db, "status"); err != nil {
		return stats, err
	}

	var avg float64
	if err := db.Model(&domain.Application{}).
		Select("COALESCE(AVG(playtime), 0)").
		Scan(&avg).Error; err != nil {
		return stats, err
	}
	stats.AvgPlaytime = math.Round(avg*10) / 10

	var best int64
	for role, count := range stats.Roles {
		if count > best || (count == best && role < stats.PopularRole) {
			best = count
			stats.PopularRole = role
		}
	}

	return stats, nil
}

func countApplicationsSince(db *gorm.DB, since time.Time) (int64, error) {
	query := db.Model(&domain.Application{})
	if !since.IsZero() {
		query = query.Where("timestamp >= ?", since.UTC())
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

type groupCount struct {
	Name  string
	Total int64
}

func groupApplicationCounts(db *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	if err := db.Model(&domain.Application{}).
		Select(column + " AS name, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Total
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
