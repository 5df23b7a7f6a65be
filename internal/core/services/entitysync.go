package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
	"github.com/custodia-labs/medingest/internal/logger"
)

// Ensure EntitySyncService implements the interface.
var _ driving.EntitySyncService = (*EntitySyncService)(nil)

// confidenceEpsilon absorbs float noise when comparing confidences.
const confidenceEpsilon = 1e-9

// SyncTarget is one external store and the limiter shared by every call to it.
type SyncTarget struct {
	Store   driven.StructuredStore
	Limiter driven.RateLimiter
}

// RetryPolicy bounds retries of transient failures.
type RetryPolicy struct {
	// MaxAttempts includes the first attempt (minimum 1).
	MaxAttempts int

	// BaseBackoff is the delay before the second attempt; it doubles after
	// each further failure.
	BaseBackoff time.Duration

	// MaxBackoff caps the delay.
	MaxBackoff time.Duration

	// CallTimeout bounds a single store call. Zero means no per-call timeout.
	CallTimeout time.Duration
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseBackoff: 200 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
		CallTimeout: 30 * time.Second,
	}
}

// Delay returns the backoff before attempt+1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// SyncOption configures an EntitySyncService.
type SyncOption func(*EntitySyncService)

// WithSyncConcurrency sets how many entities sync in parallel.
func WithSyncConcurrency(n int) SyncOption {
	return func(s *EntitySyncService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SyncOption {
	return func(s *EntitySyncService) { s.sleep = sleep }
}

// EntitySyncService upserts entities into external structured stores.
type EntitySyncService struct {
	targets     []SyncTarget
	policy      RetryPolicy
	concurrency int
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewEntitySyncService creates a sync service for the given targets.
func NewEntitySyncService(targets []SyncTarget, policy RetryPolicy, opts ...SyncOption) *EntitySyncService {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	s := &EntitySyncService{
		targets:     targets,
		policy:      policy,
		concurrency: 4,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Targets returns the configured target names.
func (s *EntitySyncService) Targets() []string {
	names := make([]string, len(s.targets))
	for i, t := range s.targets {
		names[i] = t.Store.Name()
	}
	return names
}

// Sync reconciles entities against every target. The result slice holds
// exactly one entry per entity per target, grouped by target in input order.
func (s *EntitySyncService) Sync(ctx context.Context, entities []domain.Entity) []domain.SyncResult {
	results := make([]domain.SyncResult, len(s.targets)*len(entities))
	if len(results) == 0 {
		return results
	}

	// Duplicate keys would race on the same remote record; only the
	// strongest copy is written.
	winner := make(map[string]int, len(entities))
	for i, e := range entities {
		key := e.Key().String()
		if j, ok := winner[key]; !ok || e.Confidence > entities[j].Confidence {
			winner[key] = i
		}
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for t, target := range s.targets {
		for i, e := range entities {
			idx := t*len(entities) + i
			key := e.Key().String()
			base := domain.SyncResult{EntityID: e.ID, Key: key, Target: target.Store.Name()}

			if winner[key] != i {
				base.Status = domain.SyncSkipped
				base.Error = "duplicate dedup key in batch"
				results[idx] = base
				continue
			}
			g.Go(func() error {
				results[idx] = s.syncOne(ctx, target, e, base)
				return nil
			})
		}
	}
	_ = g.Wait()

	summary := domain.Summarize(results)
	logger.Info("Sync complete: %d created, %d updated, %d skipped, %d failed",
		summary.Created, summary.Updated, summary.Skipped, summary.Failed)
	return results
}

// syncOne runs the reconcile loop for one entity against one target.
func (s *EntitySyncService) syncOne(
	ctx context.Context,
	target SyncTarget,
	e domain.Entity,
	res domain.SyncResult,
) domain.SyncResult {
	rec := domain.RecordFromEntity(e)

	for {
		if err := ctx.Err(); err != nil {
			res.Status = domain.SyncFailed
			res.Error = "cancelled: " + err.Error()
			return res
		}
		res.Attempts++
		status, err := s.reconcile(ctx, target, rec)
		if err == nil {
			res.Status = status
			res.Error = ""
			return res
		}

		res.Error = err.Error()
		if !IsTransient(err) || res.Attempts >= s.policy.MaxAttempts || ctx.Err() != nil {
			res.Status = domain.SyncFailed
			logger.Debug("Sync %s to %s failed after %d attempt(s): %v", res.Key, res.Target, res.Attempts, err)
			return res
		}

		delay := s.policy.Delay(res.Attempts)
		if errors.Is(err, domain.ErrRateLimited) && target.Limiter != nil {
			target.Limiter.Backoff(delay)
		}
		logger.Debug("Sync %s to %s: transient error, retrying in %v: %v", res.Key, res.Target, delay, err)
		if err := s.sleep(ctx, delay); err != nil {
			res.Status = domain.SyncFailed
			res.Error = "cancelled: " + err.Error()
			return res
		}
	}
}

// reconcile creates, updates or skips rec depending on the remote state.
// Every remote call takes its own limiter token.
func (s *EntitySyncService) reconcile(
	ctx context.Context,
	target SyncTarget,
	rec domain.Record,
) (domain.SyncStatus, error) {
	store := target.Store
	collection := string(rec.Type)

	if err := waitToken(ctx, target.Limiter); err != nil {
		return "", err
	}
	callCtx, cancel := s.callContext(ctx)
	existing, err := store.Query(callCtx, collection, rec.Key)
	cancel()
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}

	status := domain.SyncCreated
	if existing != nil {
		if !needsUpdate(*existing, rec) {
			return domain.SyncSkipped, nil
		}
		status = domain.SyncUpdated
		// Keep the remote identity so the record is replaced, not duplicated.
		if existing.ID != "" {
			rec.ID = existing.ID
		}
		// Never downgrade verification or confidence already stored remotely.
		rec.Verified = rec.Verified || existing.Verified
		rec.Confidence = max(rec.Confidence, existing.Confidence)
	}

	if err := waitToken(ctx, target.Limiter); err != nil {
		return "", err
	}
	callCtx, cancel = s.callContext(ctx)
	defer cancel()
	if err := store.Upsert(callCtx, collection, rec.ID, rec); err != nil {
		return "", fmt.Errorf("upsert: %w", err)
	}
	return status, nil
}

func waitToken(ctx context.Context, limiter driven.RateLimiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (s *EntitySyncService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.policy.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.policy.CallTimeout)
}

// needsUpdate reports whether local improves on remote: content changed,
// confidence increased or the entity became verified.
func needsUpdate(remote, local domain.Record) bool {
	if remote.ContentHash != local.ContentHash {
		return true
	}
	if local.Confidence > remote.Confidence+confidenceEpsilon {
		return true
	}
	return local.Verified && !remote.Verified
}

// IsTransient reports whether a sync error is worth retrying: rate
// limiting, timeouts and errors stores marked transient.
func IsTransient(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	if errors.Is(err, domain.ErrSyncTransient) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsPermanent reports whether a sync error must not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, domain.ErrSyncPermanent) || errors.Is(err, domain.ErrInvalidInput)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
