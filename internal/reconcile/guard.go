package reconcile

import (
	"context"
	"errors"
	"time"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/config"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// Guard keeps two instances from reconciling at the same time.
type Guard interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type NoGuard struct{}

func (NoGuard) Acquire(context.Context) (func(), error) { return func() {}, nil }

type RedisGuard struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
}

func NewRedisGuard(locker *redislock.Client, key string, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisGuard{locker: locker, key: key, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context) (func(), error) {
	lock, err := g.locker.Obtain(ctx, g.key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperr.Conflict("reconciliation is already running")
	}
	if err != nil {
		config.LogError("reconcile", "Acquire", logrus.Fields{"key": g.key}, err)
		return nil, apperr.Persistence(err)
	}
	return func() {
		// the context of the run may already be cancelled
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError("reconcile", "Release", logrus.Fields{"key": g.key}, err)
		}
	}, nil
}
