package database

import (
	"context"
	"time"

	"clansite/internal/api/dto"
	"clansite/internal/domain"

	"gorm.io/gorm"
)

const popularPagesLimit = 10

type VisitStore struct {
	db *gorm.DB
}

func NewVisitStore(db *gorm.DB) *VisitStore {
	return &VisitStore{db: db}
}

func (s *VisitStore) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, errDatabaseNotInitialised
	}
	if ctx != nil {
		return s.db.WithContext(ctx), nil
	}
	return s.db, nil
}

func (s *VisitStore) Record(ctx context.Context, visit domain.Visit) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	visit.ID = 0
	visit.Timestamp = visit.Timestamp.UTC()
	if len(visit.UserAgent) > 512 {
		visit.UserAgent = visit.UserAgent[:512]
	}
	return db.Create(&visit).Error
}

func (s *VisitStore) Statistics(ctx context.Context, now time.Time) (dto.VisitStatistics, error) {
	stats := dto.VisitStatistics{PopularPages: map[string]int64{}}

	db, err := s.conn(ctx)
	if err != nil {
		return stats, err
	}

	if err := db.Model(&domain.Visit{}).Count(&stats.TotalVisits).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&domain.Visit{}).
		Distinct("ip_address").
		Count(&stats.UniqueVisitors).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&domain.Visit{}).
		Where("timestamp >= ?", startOfDay(now)).
		Count(&stats.TodayVisits).Error; err != nil {
		return stats, err
	}

	var rows []groupCount
	if err := db.Model(&domain.Visit{}).
		Select("path AS name, COUNT(*) AS total").
		Group("path").
		Order("total DESC").
		Limit(popularPagesLimit).
		Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.PopularPages[row.Name] = row.Total
	}

	return stats, nil
}
