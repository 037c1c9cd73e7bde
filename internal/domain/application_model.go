package domain

import "time"

const ApplicationStatusNew = "new"

// Application is a membership request submitted through the public form.
type Application struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	Nickname  string `gorm:"size:128;not null" json:"nickname"`
	SteamID   string `gorm:"size:128;not null" json:"steam_id"`
	Playtime  int    `gorm:"not null" json:"playtime"`
	Discord   string `gorm:"size:128;not null" json:"discord"`
	Role      string `gorm:"size:128;not null;index" json:"role"`
	Message   string `gorm:"type:text;not null" json:"message"`
	IPAddress string `gorm:"size:45;not null" json:"ip_address"`

	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Status    string    `gorm:"size:32;not null;default:new" json:"status"`
}

// ApplicationLimit tracks the last submission per IP for the cooldown check.
type ApplicationLimit struct {
	IPAddress           string    `gorm:"primaryKey;size:45"`
	LastApplicationTime time.Time `gorm:"not null"`
	ApplicationCount    int64     `gorm:"not null;default:1"`
}
