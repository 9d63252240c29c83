package doctors

import (
	"context"

	"consulta_backend/platform/logger"
	"consulta_backend/platform/retry"

	"github.com/google/uuid"
)

// Finder looks a doctor up in the store.
type Finder interface {
	FindIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Cache is an optional read-through cache in front of Finder.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error)
	Set(ctx context.Context, userID, doctorID uuid.UUID) error
}

// Resolver maps an authenticated user to a doctor id.
type Resolver struct {
	finder Finder
	cache  Cache
	policy retry.Policy
	log    *logger.Logger
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(finder Finder, cache Cache, policy retry.Policy, log *logger.Logger) *Resolver {
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error) {
			log.Warn("doctor lookup failed, retrying", "attempt", attempt, "error", err)
		}
	}
	return &Resolver{finder: finder, cache: cache, policy: policy, log: log}
}

// Resolve returns the doctor id for userID. Transient store failures are
// retried under the policy and surface as Unavailable once exhausted;
// a missing doctor is NotFound immediately. Cache errors only cost a lookup.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if r.cache != nil {
		id, ok, err := r.cache.Get(ctx, userID)
		if err != nil {
			r.log.WithContext(ctx).Warn("doctor cache read failed", "error", err)
		} else if ok {
			return id, nil
		}
	}

	id, err := retry.Do(ctx, r.policy, "doctors.Resolve", func(ctx context.Context) (uuid.UUID, error) {
		return r.finder.FindIDByUserID(ctx, userID)
	})
	if err != nil {
		return uuid.Nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, userID, id); err != nil {
			r.log.WithContext(ctx).Warn("doctor cache write failed", "error", err)
		}
	}
	return id, nil
}
