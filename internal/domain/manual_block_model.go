package domain

import "time"

// ManualBlock is an audit row for an administrator issued block.
// Rows are never deleted; superseded or lifted blocks are deactivated.
type ManualBlock struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	IP        string  `gorm:"size:45;not null;index:idx_manual_blocks_ip_active,priority:1" json:"ip_address"`
	BlockedBy string  `gorm:"size:128;not null" json:"blocked_by"`
	Reason    *string `gorm:"size:512" json:"reason"`

	BlockTime time.Time  `gorm:"not null" json:"block_time"`
	IsActive  bool       `gorm:"not null;index:idx_manual_blocks_ip_active,priority:2" json:"-"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`
}

// ExpiredAt reports whether the block carries an expiry that lies before now.
func (m ManualBlock) ExpiredAt(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}
