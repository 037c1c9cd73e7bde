package admission

import (
	"context"
	"time"

	"clansite/internal/domain"
)

// Store is the persistence the engine needs. database.BlockStore implements it.
type Store interface {
	ActiveManualBlock(ctx context.Context, ip string) (*domain.ManualBlock, error)
	DeactivateManualBlock(ctx context.Context, id uint64, ip string) error

	AutoBlock(ctx context.Context, ip string) (*domain.IPBlock, error)
	ClearAutoBlock(ctx context.Context, ip string) error
	SaveIPBlock(ctx context.Context, block domain.IPBlock) error

	CountRequestsSince(ctx context.Context, ip string, since time.Time) (int64, error)
	LogRequest(ctx context.Context, entry domain.RequestLog) error

	AddManualBlock(ctx context.Context, block domain.ManualBlock) (domain.ManualBlock, error)
	RemoveManualBlock(ctx context.Context, ip string) (int64, error)
	ListActiveManualBlocks(ctx context.Context) ([]domain.ManualBlock, error)

	Cleanup(ctx context.Context, cutoff domain.CleanupCutoff) (domain.CleanupResult, error)
}
