package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fhtally/internal/log"
	"fhtally/internal/storage"
)

// StaleClaims lists and releases delivery claims that never completed.
type StaleClaims interface {
	PendingDeliveries(ctx context.Context, olderThan time.Duration, limit int) ([]storage.DeliveryRecord, error)
	ReleaseDelivery(ctx context.Context, id string) error
}

// ClaimSweeper frees claims left pending by a process that died or timed out
// mid-delivery, so a redelivery of the same booking is counted. Both the
// receiver and the queue worker run one when de-duplication is on.
type ClaimSweeper struct {
	claims    StaleClaims
	batchSize int
}

func NewClaimSweeper(claims StaleClaims, batchSize int) *ClaimSweeper {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ClaimSweeper{claims: claims, batchSize: batchSize}
}

// Release frees up to one batch of claims pending for longer than olderThan.
func (s *ClaimSweeper) Release(ctx context.Context, olderThan time.Duration) (int, error) {
	if s == nil || s.claims == nil {
		return 0, nil
	}
	stale, err := s.claims.PendingDeliveries(ctx, olderThan, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale claims: %w", err)
	}
	released := 0
	for _, rec := range stale {
		if err := s.claims.ReleaseDelivery(ctx, rec.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to release stale claim", log.FieldDeliveryID, rec.ID, log.FieldError, err)
			continue
		}
		released++
	}
	if len(stale) > 0 {
		slog.InfoContext(ctx, "Released stale delivery claims", "found", len(stale), "released", released)
	}
	return released, nil
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *ClaimSweeper) Run(ctx context.Context, every, olderThan time.Duration) {
	if s == nil || s.claims == nil {
		return
	}
	if _, err := s.Release(ctx, olderThan); err != nil {
		slog.WarnContext(ctx, "Startup claim sweep failed", log.FieldError, err)
	}
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Release(ctx, olderThan); err != nil {
				slog.WarnContext(ctx, "Claim sweep failed", log.FieldError, err)
			}
		}
	}
}
