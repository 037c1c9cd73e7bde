package domain

import (
	"strings"
	"time"
)

const (
	BlockReasonNormal     = "normal"
	BlockReasonVisitLimit = "visit_limit"
	BlockReasonDDoS       = "ddos"

	manualReasonPrefix = "manual: "

	BlockedBySystem = "system"
)

// IPBlock holds the rate limiting state of a single address.
// There is at most one row per IP.
type IPBlock struct {
	IP string `gorm:"primaryKey;size:45"`

	// BlockStartTime is refreshed on every admitted request and set to the
	// moment a block was written.
	BlockStartTime time.Time `gorm:"not null;index"`
	RequestCount   int64     `gorm:"not null;default:0"`

	IsBlocked     bool   `gorm:"not null;index"`
	BlockReason   string `gorm:"size:520;not null"`
	IsManualBlock bool   `gorm:"not null"`
	BlockedBy     string `gorm:"size:128;not null"`

	BlockExpires *time.Time
}

// ManualBlockReason renders the reason mirrored into ip_blocks for a manual block.
func ManualBlockReason(reason *string) string {
	if reason == nil {
		return strings.TrimSpace(manualReasonPrefix)
	}
	return manualReasonPrefix + *reason
}
