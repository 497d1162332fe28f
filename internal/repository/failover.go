package repository

import (
	"context"
	"sync"
	"time"

	"roombook/internal/domain"

	"github.com/rs/zerolog"
)

const defaultRecoveryInterval = time.Minute

// FailoverQuotaStore uses primary until it fails, then serves from fallback and
// probes primary again once per recovery interval.
type FailoverQuotaStore struct {
	primary  domain.QuotaStore
	fallback domain.QuotaStore
	logger   *zerolog.Logger

	mu               sync.Mutex
	isDown           bool
	lastCheck        time.Time
	recoveryInterval time.Duration
	now              func() time.Time
}

func NewFailoverQuotaStore(primary, fallback domain.QuotaStore, logger *zerolog.Logger) *FailoverQuotaStore {
	return &FailoverQuotaStore{
		primary:          primary,
		fallback:         fallback,
		logger:           logger,
		recoveryInterval: defaultRecoveryInterval,
		now:              time.Now,
	}
}

func (r *FailoverQuotaStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.Allow(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.Allow(ctx, key, limit, window)
}

func (r *FailoverQuotaStore) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.isDown || r.now().Sub(r.lastCheck) > r.recoveryInterval
}

func (r *FailoverQuotaStore) markUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDown {
		r.logger.Info().Msg("Primary quota store recovered")
	}
	r.isDown = false
}

func (r *FailoverQuotaStore) markDown(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isDown {
		r.logger.Error().Err(err).Msg("Primary quota store failed, falling back to memory")
	}
	r.isDown = true
	r.lastCheck = r.now()
}

// Down reports whether the fallback is currently in use.
func (r *FailoverQuotaStore) Down() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isDown
}
