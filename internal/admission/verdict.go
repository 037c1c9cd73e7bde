package admission

import (
	"time"

	"clansite/internal/domain"
)

type Reason string

const (
	ReasonAllowed     Reason = "allowed"
	ReasonManualBlock Reason = "manual_block"
	ReasonVisitLimit  Reason = "visit_limit"
	ReasonDDoS        Reason = "ddos"
)

// Verdict is the admission decision for one request.
type Verdict struct {
	Allow  bool
	Reason Reason

	// RetryAfter is the configured block length for rate-limit denials.
	RetryAfter time.Duration

	// FailOpen marks a request admitted because the store could not be consulted.
	FailOpen bool
}

func allow() Verdict {
	return Verdict{Allow: true, Reason: ReasonAllowed}
}

func failOpen() Verdict {
	return Verdict{Allow: true, Reason: ReasonAllowed, FailOpen: true}
}

func deny(reason Reason, retryAfter time.Duration) Verdict {
	return Verdict{Allow: false, Reason: reason, RetryAfter: retryAfter}
}

// reasonFromStored maps an ip_blocks reason to a verdict reason. Anything
// that is not a visit limit is treated as a flood block.
func reasonFromStored(stored string) Reason {
	if stored == domain.BlockReasonVisitLimit {
		return ReasonVisitLimit
	}
	return ReasonDDoS
}
