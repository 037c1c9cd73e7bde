package domain

import "time"

type Visit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IPAddress string    `gorm:"size:45;not null;index"`
	UserAgent string    `gorm:"size:512"`
	Path      string    `gorm:"size:2048;not null;index"`
	Timestamp time.Time `gorm:"not null;index"`
}
