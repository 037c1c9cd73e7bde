package domain

import "time"

// RequestLog is one admitted request used for windowed counting.
type RequestLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	IP        string    `gorm:"size:45;not null;index:idx_request_logs_ip_ts,priority:1"`
	Timestamp time.Time `gorm:"not null;index:idx_request_logs_ip_ts,priority:2;index"`
	Path      string    `gorm:"size:2048;not null"`
}

// CleanupCutoff carries the timestamps a sweep compares against.
type CleanupCutoff struct {
	Now time.Time

	// RequestLogsBefore drops request logs older than this instant.
	RequestLogsBefore time.Time
	// IdleBlocksBefore drops unblocked ip_blocks rows last touched before this instant.
	IdleBlocksBefore time.Time
	// StaleBlocksBefore drops automatic blocks that started before this instant;
	// they would be cleared on the next request anyway.
	StaleBlocksBefore time.Time
}

// CleanupResult summarises one sweep over the admission tables.
type CleanupResult struct {
	RequestLogsDeleted      int64
	IPBlocksDeleted         int64
	ManualBlocksDeactivated int64
}

func (r CleanupResult) Empty() bool {
	return r.RequestLogsDeleted == 0 && r.IPBlocksDeleted == 0 && r.ManualBlocksDeactivated == 0
}
