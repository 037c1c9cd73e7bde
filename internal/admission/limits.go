package admission

import (
	"time"

	"clansite/internal/domain"
	"clansite/internal/support"
)

const (
	DefaultVisitLimit     = 15
	DefaultVisitBlockTime = 60 * time.Second
	DefaultRequestLimit   = 100
	DefaultBlockTime      = 300 * time.Second

	defaultWindow       = time.Minute
	defaultLogRetention = 2 * time.Minute
)

// Limits are fixed at process start.
type Limits struct {
	// VisitLimit is the request count inside Window at which a visitor is throttled.
	VisitLimit int64
	// VisitBlockTime is how long a visit_limit block lasts.
	VisitBlockTime time.Duration
	// RequestLimit is the post-admission window count that marks an IP as a flood source.
	RequestLimit int64
	// BlockTime is how long a ddos block lasts.
	BlockTime time.Duration

	Window       time.Duration
	LogRetention time.Duration

	// StrictPerIP serialises evaluations for the same IP.
	StrictPerIP bool
}

func DefaultLimits() Limits {
	return Limits{
		VisitLimit:     DefaultVisitLimit,
		VisitBlockTime: DefaultVisitBlockTime,
		RequestLimit:   DefaultRequestLimit,
		BlockTime:      DefaultBlockTime,
		Window:         defaultWindow,
		LogRetention:   defaultLogRetention,
	}
}

// LimitsFromEnv reads overrides for the defaults once at start.
func LimitsFromEnv() Limits {
	limits := DefaultLimits()
	limits.VisitLimit = int64(support.GetEnvInt("VISIT_LIMIT", DefaultVisitLimit))
	limits.VisitBlockTime = support.GetEnvDuration("VISIT_BLOCK_TIME", DefaultVisitBlockTime)
	limits.RequestLimit = int64(support.GetEnvInt("REQUEST_LIMIT", DefaultRequestLimit))
	limits.BlockTime = support.GetEnvDuration("BLOCK_TIME", DefaultBlockTime)
	limits.StrictPerIP = support.GetEnvBool("ADMISSION_STRICT_PER_IP", false)
	return limits.normalized()
}

func (l Limits) normalized() Limits {
	def := DefaultLimits()
	if l.VisitLimit <= 0 {
		l.VisitLimit = def.VisitLimit
	}
	if l.VisitBlockTime <= 0 {
		l.VisitBlockTime = def.VisitBlockTime
	}
	if l.RequestLimit <= 0 {
		l.RequestLimit = def.RequestLimit
	}
	if l.BlockTime <= 0 {
		l.BlockTime = def.BlockTime
	}
	if l.Window <= 0 {
		l.Window = def.Window
	}
	if l.LogRetention < l.Window {
		l.LogRetention = 2 * l.Window
	}
	return l
}

// BlockDuration is how long an automatic block with the given stored reason lasts.
func (l Limits) BlockDuration(reason string) time.Duration {
	if reason == domain.BlockReasonVisitLimit {
		return l.VisitBlockTime
	}
	return l.BlockTime
}

func (l Limits) longestBlock() time.Duration {
	return max(l.VisitBlockTime, l.BlockTime)
}
