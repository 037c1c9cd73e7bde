package database

import (
	"context"
	"errors"
	"time"

	"clansite/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errDatabaseNotInitialised = errors.New("database not initialised")

var ipBlockUpsertColumns = []string{
	"block_start_time",
	"request_count",
	"is_blocked",
	"block_reason",
	"is_manual_block",
	"blocked_by",
	"block_expires",
}

// BlockStore persists the admission tables: ip_blocks, manual_blocks and
// request_logs. It holds no policy of its own.
type BlockStore struct {
	db *gorm.DB
}

func NewBlockStore(db *gorm.DB) *BlockStore {
	return &BlockStore{db: db}
}

func (s *BlockStore) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, errDatabaseNotInitialised
	}
	if ctx != nil {
		return s.db.WithContext(ctx), nil
	}
	return s.db, nil
}

// ActiveManualBlock returns the newest active manual block for ip, or nil.
func (s *BlockStore) ActiveManualBlock(ctx context.Context, ip string) (*domain.ManualBlock, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var blocks []domain.ManualBlock
	if err := db.
		Where("ip = ? AND is_active = ?", ip, true).
		Order("id DESC").
		Limit(1).
		Find(&blocks).Error; err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return &blocks[0], nil
}

// DeactivateManualBlock marks one manual block inactive and clears the
// mirrored ip_blocks flag. Calling it twice is harmless.
func (s *BlockStore) DeactivateManualBlock(ctx context.Context, id uint64, ip string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ManualBlock{}).
			Where("id = ? AND is_active = ?", id, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return clearManualMirror(tx, ip)
	})
}

// IPBlock returns the ip_blocks row for ip, or nil.
func (s *BlockStore) IPBlock(ctx context.Context, ip string) (*domain.IPBlock, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var blocks []domain.IPBlock
	if err := db.Where("ip = ?", ip).Limit(1).Find(&blocks).Error; err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return &blocks[0], nil
}

// AutoBlock returns the ip_blocks row for ip only when it is an active
// automatic (non-manual) block.
func (s *BlockStore) AutoBlock(ctx context.Context, ip string) (*domain.IPBlock, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var blocks []domain.IPBlock
	if err := db.
		Where("ip = ? AND is_blocked = ? AND is_manual_block = ?", ip, true, false).
		Limit(1).
		Find(&blocks).Error; err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return &blocks[0], nil
}

func (s *BlockStore) ClearAutoBlock(ctx context.Context, ip string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	return db.Model(&domain.IPBlock{}).
		Where("ip = ? AND is_manual_block = ?", ip, false).
		Updates(map[string]any{
			"is_blocked":    false,
			"request_count": 0,
		}).Error
}

// CountRequestsSince counts request logs for ip strictly newer than since.
func (s *BlockStore) CountRequestsSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&domain.RequestLog{}).
		Where("ip = ? AND timestamp > ?", ip, since.UTC()).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *BlockStore) LogRequest(ctx context.Context, entry domain.RequestLog) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	entry.Timestamp = entry.Timestamp.UTC()
	return db.Create(&entry).Error
}

// SaveIPBlock inserts or fully replaces the ip_blocks row for block.IP.
func (s *BlockStore) SaveIPBlock(ctx context.Context, block domain.IPBlock) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	return upsertIPBlock(db, block)
}

// AddManualBlock supersedes any active manual block for the IP, stores the
// new record and mirrors the blocked flag into ip_blocks in one transaction.
func (s *BlockStore) AddManualBlock(ctx context.Context, block domain.ManualBlock) (domain.ManualBlock, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return domain.ManualBlock{}, err
	}

	block.ID = 0
	block.IsActive = true
	block.BlockTime = block.BlockTime.UTC()
	if block.ExpiresAt != nil {
		expires := block.ExpiresAt.UTC()
		block.ExpiresAt = &expires
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ManualBlock{}).
			Where("ip = ? AND is_active = ?", block.IP, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		if err := tx.Create(&block).Error; err != nil {
			return err
		}

		return upsertIPBlock(tx, domain.IPBlock{
			IP:             block.IP,
			BlockStartTime: block.BlockTime,
			IsBlocked:      true,
			BlockReason:    domain.ManualBlockReason(block.Reason),
			IsManualBlock:  true,
			BlockedBy:      block.BlockedBy,
			BlockExpires:   block.ExpiresAt,
		})
	})
	if err != nil {
		return domain.ManualBlock{}, err
	}
	return block, nil
}

// RemoveManualBlock deactivates every active manual block for ip and clears
// the mirrored flag. It reports how many records were deactivated.
func (s *BlockStore) RemoveManualBlock(ctx context.Context, ip string) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	var deactivated int64
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.ManualBlock{}).
			Where("ip = ? AND is_active = ?", ip, true).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		deactivated = result.RowsAffected
		return clearManualMirror(tx, ip)
	})
	if err != nil {
		return 0, err
	}
	return deactivated, nil
}

// ListActiveManualBlocks returns active manual blocks, newest first.
func (s *BlockStore) ListActiveManualBlocks(ctx context.Context) ([]domain.ManualBlock, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var blocks []domain.ManualBlock
	if err := db.
		Where("is_active = ?", true).
		Order("block_time DESC").
		Order("id DESC").
		Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

// Cleanup bounds the admission tables: old request logs and idle or stale
// ip_blocks rows are deleted, expired manual blocks are deactivated.
func (s *BlockStore) Cleanup(ctx context.Context, cutoff domain.CleanupCutoff) (domain.CleanupResult, error) {
	var result domain.CleanupResult

	db, err := s.conn(ctx)
	if err != nil {
		return result, err
	}

	logs := db.Where("timestamp < ?", cutoff.RequestLogsBefore.UTC()).Delete(&domain.RequestLog{})
	if logs.Error != nil {
		return result, logs.Error
	}
	result.RequestLogsDeleted = logs.RowsAffected

	idle := db.
		Where("is_blocked = ? AND block_start_time < ?", false, cutoff.IdleBlocksBefore.UTC()).
		Delete(&domain.IPBlock{})
	if idle.Error != nil {
		return result, idle.Error
	}
	result.IPBlocksDeleted = idle.RowsAffected

	if !cutoff.StaleBlocksBefore.IsZero() {
		stale := db.
			Where("is_blocked = ? AND is_manual_block = ? AND block_start_time < ?", true, false, cutoff.StaleBlocksBefore.UTC()).
			Delete(&domain.IPBlock{})
		if stale.Error != nil {
			return result, stale.Error
		}
		result.IPBlocksDeleted += stale.RowsAffected
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var ips []string
		if err := tx.Model(&domain.ManualBlock{}).
			Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, cutoff.Now.UTC()).
			Distinct().
			Pluck("ip", &ips).Error; err != nil {
			return err
		}
		if len(ips) == 0 {
			return nil
		}

		expired := tx.Model(&domain.ManualBlock{}).
			Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, cutoff.Now.UTC()).
			Update("is_active", false)
		if expired.Error != nil {
			return expired.Error
		}
		result.ManualBlocksDeactivated = expired.RowsAffected

		return clearManualMirror(tx, ips...)
	})

	return result, err
}

func upsertIPBlock(db *gorm.DB, block domain.IPBlock) error {
	block.BlockStartTime = block.BlockStartTime.UTC()
	if block.BlockedBy == "" {
		block.BlockedBy = domain.BlockedBySystem
	}
	if block.BlockReason == "" {
		block.BlockReason = domain.BlockReasonNormal
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip"}},
		DoUpdates: clause.AssignmentColumns(ipBlockUpsertColumns),
	}).Create(&block).Error
}

// clearManualMirror resets the denormalised manual flag for ips that no
// longer have an active manual block.
func clearManualMirror(tx *gorm.DB, ips ...string) error {
	if len(ips) == 0 {
		return nil
	}

	stillActive := tx.Session(&gorm.Session{NewDB: true}).
		Model(&domain.ManualBlock{}).
		Select("ip").
		Where("is_active = ?", true)

	return tx.Model(&domain.IPBlock{}).
		Where("ip IN ? AND is_manual_block = ?", ips, true).
		Where("ip NOT IN (?)", stillActive).
		Updates(map[string]any{
			"is_blocked":      false,
			"is_manual_block": false,
			"block_reason":    domain.BlockReasonNormal,
			"block_expires":   nil,
		}).Error
}
