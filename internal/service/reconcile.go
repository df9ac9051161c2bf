package service

import (
	"context"
	"log"
	"time"

	"aufy/internal/cache"
	"aufy/internal/repository"
)

// ReconcileService repairs denormalized follower/following counters by
// recounting active edges. Counters can drift when a multi-step write
// dies between steps; the edges themselves are the source of truth, so
// reconciliation always converges on them.
type ReconcileService struct {
	accountRepo repository.AccountRepository
	coherence   *cache.Coherence
}

func NewReconcileService(accountRepo repository.AccountRepository, coherence *cache.Coherence) *ReconcileService {
	return &ReconcileService{accountRepo: accountRepo, coherence: coherence}
}

// ReconcileAccount recounts one account's counters and drops its cached
// profile so the next read sees the repaired values.
func (s *ReconcileService) ReconcileAccount(ctx context.Context, userID int64) error {
	if err := s.accountRepo.RecountFollowCounters(ctx, userID); err != nil {
		return err
	}
	if s.coherence != nil {
		s.coherence.OnProfileChange(ctx, userID)
	}
	log.Printf("[Reconcile] Account OK: user=%d", userID)
	return nil
}

// ReconcileAll sweeps every account whose stored counters disagree with
// a recount. Run periodically; between runs reads may see drifted
// counters, which is the accepted trade for not locking counters into
// every edge write.
func (s *ReconcileService) ReconcileAll(ctx context.Context) error {
	start := time.Now()
	repaired, err := s.accountRepo.RecountAllFollowCounters(ctx)
	if err != nil {
		return err
	}
	if repaired > 0 {
		log.Printf("[Reconcile] Sweep repaired %d accounts in %v", repaired, time.Since(start))
	}
	return nil
}
