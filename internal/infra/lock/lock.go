package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld 锁已被其他 worker 持有
var ErrLockHeld = errors.New("lock held by another worker")

// Locker 基于 Redis 的互斥锁，保证同一个父任务同一时刻只有一个 worker 扇出
type Locker struct {
	rs     *redsync.Redsync
	ttl    time.Duration
	prefix string
}

// NewLocker 创建 Locker
func NewLocker(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		prefix: "forrflow:lock:",
	}
}

// Acquire 只尝试一次。锁被占用时返回 ErrLockHeld，Redis 访问失败时返回原始错误；
// 返回的 release 用于释放锁
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(l.prefix+key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if isTaken(err) {
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
		}
		return nil, fmt.Errorf("获取锁 %s 失败: %w", key, err)
	}

	release := func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			return fmt.Errorf("释放锁 %s 失败: %w", key, err)
		}
		return nil
	}
	return release, nil
}

func isTaken(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken)
}
