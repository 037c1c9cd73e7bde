package admission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clansite/internal/domain"
	"clansite/internal/support"

	"github.com/charmbracelet/log"
)

// MaxManualBlockHours caps expires_hours at 100 years; longer blocks are
// expressed as permanent.
const MaxManualBlockHours = 100 * 365 * 24

// ManualBlockView is an active manual block as shown in the admin console.
// IsExpired is computed at read time and only informs the display.
type ManualBlockView struct {
	domain.ManualBlock
	IsExpired bool `json:"is_expired"`
}

// Status is the read-only admission state of one IP.
type Status struct {
	IP              string
	CurrentRequests int64
	Limit           int64
	Remaining       int64
	Blocked         bool
	BlockReason     string
	ResetTime       time.Time
}

// AddManualBlock blocks ip until it is removed or, when expiresHours is
// positive, until that many hours from now. Any earlier active block for the
// same IP is superseded.
func (e *Engine) AddManualBlock(ctx context.Context, ip, blockedBy string, reason *string, expiresHours *int) (domain.ManualBlock, error) {
	normalized, ok := support.NormalizeIP(ip)
	if !ok {
		return domain.ManualBlock{}, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	if expiresHours != nil && (*expiresHours < 0 || *expiresHours > MaxManualBlockHours) {
		return domain.ManualBlock{}, fmt.Errorf("%w: %d hours", ErrInvalidExpiry, *expiresHours)
	}

	blockedBy = strings.TrimSpace(blockedBy)
	if blockedBy == "" {
		blockedBy = "admin"
	}
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}

	now := e.clock.Now()
	record := domain.ManualBlock{
		IP:        normalized,
		BlockedBy: blockedBy,
		Reason:    reason,
		BlockTime: now,
	}
	if expiresHours != nil && *expiresHours > 0 {
		expires := now.Add(time.Duration(*expiresHours) * time.Hour)
		record.ExpiresAt = &expires
	}

	saved, err := e.store.AddManualBlock(ctx, record)
	if err != nil {
		e.metrics.storeError("add_manual_block")
		return domain.ManualBlock{}, storeErr("add manual block", err)
	}

	log.Info("IP blocked manually", "ip", normalized, "by", blockedBy, "reason", domain.ManualBlockReason(reason), "expires_at", saved.ExpiresAt)
	return saved, nil
}

// RemoveManualBlock lifts the active manual block for ip. Lifting an IP that
// has no active block succeeds without changes.
func (e *Engine) RemoveManualBlock(ctx context.Context, ip string) error {
	normalized, ok := support.NormalizeIP(ip)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}

	removed, err := e.store.RemoveManualBlock(ctx, normalized)
	if err != nil {
		e.metrics.storeError("remove_manual_block")
		return storeErr("remove manual block", err)
	}

	if removed > 0 {
		log.Info("Manual block lifted", "ip", normalized)
	} else {
		log.Debug("No active manual block to lift", "ip", normalized)
	}
	return nil
}

func (e *Engine) ListActiveManualBlocks(ctx context.Context) ([]ManualBlockView, error) {
	blocks, err := e.store.ListActiveManualBlocks(ctx)
	if err != nil {
		e.metrics.storeError("list_manual_blocks")
		return nil, storeErr("list manual blocks", err)
	}

	now := e.clock.Now()
	views := make([]ManualBlockView, 0, len(blocks))
	for _, block := range blocks {
		views = append(views, ManualBlockView{
			ManualBlock: block,
			IsExpired:   block.ExpiredAt(now),
		})
	}
	return views, nil
}

// Status reports the admission state of ip at now without changing anything.
func (e *Engine) Status(ctx context.Context, ip string, now time.Time) (Status, error) {
	normalized, ok := support.NormalizeIP(ip)
	if !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}

	status := Status{
		IP:        normalized,
		Limit:     e.limits.VisitLimit,
		ResetTime: now.Add(e.limits.Window),
	}

	count, err := e.store.CountRequestsSince(ctx, normalized, now.Add(-e.limits.Window))
	if err != nil {
		return status, storeErr("count requests", err)
	}
	status.CurrentRequests = count
	status.Remaining = max(0, e.limits.VisitLimit-1-count)

	manual, err := e.store.ActiveManualBlock(ctx, normalized)
	if err != nil {
		return status, storeErr("manual block lookup", err)
	}
	if manual != nil && !manual.ExpiredAt(now) {
		status.Blocked = true
		status.BlockReason = domain.ManualBlockReason(manual.Reason)
		status.Remaining = 0
		if manual.ExpiresAt != nil {
			status.ResetTime = *manual.ExpiresAt
		}
		return status, nil
	}

	block, err := e.store.AutoBlock(ctx, normalized)
	if err != nil {
		return status, storeErr("automatic block lookup", err)
	}
	if block != nil {
		until := block.BlockStartTime.Add(e.limits.BlockDuration(block.BlockReason))
		if now.Before(until) {
			status.Blocked = true
			status.BlockReason = block.BlockReason
			status.Remaining = 0
			status.ResetTime = until
		}
	}

	return status, nil
}
