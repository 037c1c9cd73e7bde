package admission

import (
	"context"
	"fmt"
	"time"

	"clansite/internal/domain"
	"clansite/internal/support"

	"github.com/charmbracelet/log"
)

// Engine gates every inbound request. It owns the admission tables through
// its Store and is safe for concurrent use.
type Engine struct {
	store   Store
	limits  Limits
	clock   Clock
	metrics *Metrics
	locks   *stripedLocks
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(store Store, limits Limits, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		limits: limits.normalized(),
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.limits.StrictPerIP {
		e.locks = newStripedLocks(defaultLockStripes)
	}
	return e
}

func (e *Engine) Limits() Limits {
	return e.limits
}

func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Admit evaluates one request from ip for path at now. A store failure
// admits the request and is reported through the log and metrics.
func (e *Engine) Admit(ctx context.Context, ip, path string, now time.Time) Verdict {
	if normalized, ok := support.NormalizeIP(ip); ok {
		ip = normalized
	}

	if e.locks != nil {
		unlock := e.locks.lock(ip)
		defer unlock()
	}

	verdict, err := e.evaluate(ctx, ip, path, now)
	if err != nil {
		e.metrics.storeError("admit")
		log.Error("Admission check failed, admitting request", "ip", ip, "path", path, "error", err)
		verdict = failOpen()
	}

	e.metrics.observe(verdict)
	return verdict
}

func (e *Engine) evaluate(ctx context.Context, ip, path string, now time.Time) (Verdict, error) {
	manual, err := e.store.ActiveManualBlock(ctx, ip)
	if err != nil {
		return Verdict{}, storeErr("manual block lookup", err)
	}
	if manual != nil {
		if !manual.ExpiredAt(now) {
			log.Debug("Request denied by manual block", "ip", ip, "block_id", manual.ID)
			return deny(ReasonManualBlock, 0), nil
		}
		if err := e.store.DeactivateManualBlock(ctx, manual.ID, ip); err != nil {
			return Verdict{}, storeErr("deactivate expired manual block", err)
		}
		log.Info("Manual block expired", "ip", ip, "block_id", manual.ID)
	}

	block, err := e.store.AutoBlock(ctx, ip)
	if err != nil {
		return Verdict{}, storeErr("automatic block lookup", err)
	}
	if block != nil {
		duration := e.limits.BlockDuration(block.BlockReason)
		if now.Sub(block.BlockStartTime) < duration {
			return deny(reasonFromStored(block.BlockReason), duration), nil
		}
		if err := e.store.ClearAutoBlock(ctx, ip); err != nil {
			return Verdict{}, storeErr("clear automatic block", err)
		}
		log.Info("IP unblocked after rate limit", "ip", ip, "reason", block.BlockReason)
	}

	since := now.Add(-e.limits.Window)
	count, err := e.store.CountRequestsSince(ctx, ip, since)
	if err != nil {
		return Verdict{}, storeErr("count requests", err)
	}

	// The arriving request counts toward the window, so the request that
	// brings the window to VisitLimit is the one that is refused.
	if count+1 >= e.limits.VisitLimit {
		if err := e.store.SaveIPBlock(ctx, domain.IPBlock{
			IP:             ip,
			BlockStartTime: now,
			RequestCount:   count,
			IsBlocked:      true,
			BlockReason:    domain.BlockReasonVisitLimit,
			BlockedBy:      domain.BlockedBySystem,
		}); err != nil {
			return Verdict{}, storeErr("write visit limit block", err)
		}
		log.Warn("IP blocked for exceeding visit limit", "ip", ip, "requests", count+1)
		return deny(ReasonVisitLimit, e.limits.VisitBlockTime), nil
	}

	if err := e.store.LogRequest(ctx, domain.RequestLog{IP: ip, Timestamp: now, Path: path}); err != nil {
		return Verdict{}, storeErr("log request", err)
	}
	if err := e.store.SaveIPBlock(ctx, domain.IPBlock{
		IP:             ip,
		BlockStartTime: now,
		RequestCount:   count + 1,
		BlockReason:    domain.BlockReasonNormal,
		BlockedBy:      domain.BlockedBySystem,
	}); err != nil {
		return Verdict{}, storeErr("update request count", err)
	}

	// Flood check runs after logging so the request that reaches
	// RequestLimit is itself recorded before the block is written.
	total, err := e.store.CountRequestsSince(ctx, ip, since)
	if err != nil {
		return Verdict{}, storeErr("recount requests", err)
	}
	if total >= e.limits.RequestLimit {
		if err := e.store.SaveIPBlock(ctx, domain.IPBlock{
			IP:             ip,
			BlockStartTime: now,
			RequestCount:   total,
			IsBlocked:      true,
			BlockReason:    domain.BlockReasonDDoS,
			BlockedBy:      domain.BlockedBySystem,
		}); err != nil {
			return Verdict{}, storeErr("write ddos block", err)
		}
		log.Warn("IP blocked for request flood", "ip", ip, "requests", total)
		return deny(ReasonDDoS, e.limits.BlockTime), nil
	}

	log.Debug("Request admitted", "ip", ip, "path", path, "window_requests", count+1)
	return allow(), nil
}

// Cleanup removes request logs and idle ip_blocks rows older than the log
// retention and deactivates manual blocks whose expiry has passed.
func (e *Engine) Cleanup(ctx context.Context, now time.Time) (domain.CleanupResult, error) {
	retention := e.limits.LogRetention
	cutoff := domain.CleanupCutoff{
		Now:               now,
		RequestLogsBefore: now.Add(-retention),
		IdleBlocksBefore:  now.Add(-retention),
		StaleBlocksBefore: now.Add(-(e.limits.longestBlock() + retention)),
	}

	result, err := e.store.Cleanup(ctx, cutoff)
	if err != nil {
		e.metrics.storeError("cleanup")
		return result, storeErr("cleanup", err)
	}
	e.metrics.swept(result)
	return result, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
