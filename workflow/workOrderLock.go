package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/sirupsen/logrus"
)

const workOrderLockTTL = 30 * time.Second

func workOrderLockKey(workOrderId int) string {
	return fmt.Sprintf("lock:work_order:%d", workOrderId)
}

// WithWorkOrderLock runs fn while holding a best-effort Redis lock on the work order.
// The row lock taken inside fn is what guarantees correctness; the Redis lock only
// keeps concurrent requests for one work order from piling up on the database.
// Without Redis, or when the lock is busy, fn still runs.
func WithWorkOrderLock(ctx context.Context, workOrderId int, fn func(ctx context.Context) error) error {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return fn(ctx)
	}

	lock, err := locker.Obtain(ctx, workOrderLockKey(workOrderId), workOrderLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		fields := logrus.Fields{"field": "WithWorkOrderLock", "work_order_id": workOrderId}
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.WithFields(fields).Warn("could not obtain work order lock; proceeding without redis lock")
		} else {
			logger.WithFields(fields).Warn("error obtaining work order lock; proceeding without redis lock: " + err.Error())
		}
		return fn(ctx)
	}
	defer func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			logger.WithFields(logrus.Fields{
				"field":         "WithWorkOrderLock",
				"work_order_id": workOrderId,
			}).Warn("failed to release work order lock: " + releaseErr.Error())
		}
	}()
	return fn(ctx)
}
