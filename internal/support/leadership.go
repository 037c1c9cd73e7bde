package support

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLeadershipTTL = 45 * time.Second

	leaderRetryDelay = time.Second
	leaderOpTimeout  = 5 * time.Second
)

// ownerScript extends (ARGV[2] > 0) or deletes (ARGV[2] == 0) the lock, but
// only while ARGV[1] still owns it.
var ownerScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return redis.call("DEL", KEYS[1])`)

// RunWithLeader invokes run only on the instance holding the redis lock at
// key, so periodic jobs execute once across replicas sharing one database.
// The context passed to run is cancelled when the lock is lost. Without a
// redis client the process is the only instance and run is invoked directly.
func RunWithLeader(ctx context.Context, client *redis.Client, key string, ttl time.Duration, run func(context.Context)) error {
	if run == nil {
		return errors.New("support: leader run function cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if client == nil {
		run(ctx)
		return ctx.Err()
	}

	if ttl <= 0 {
		ttl = DefaultLeadershipTTL
	}
	lock := &leaderLock{client: client, key: key, owner: leaderOwnerID(), ttl: ttl}

	for ctx.Err() == nil {
		acquired, err := lock.tryAcquire(ctx)
		if err != nil && ctx.Err() == nil {
			log.Warn("leader lock: acquire failed", "key", key, "error", err)
		}

		if acquired {
			log.Debug("leader lock: acquired", "key", key)
			leaderCtx, lost := context.WithCancel(ctx)
			go lock.keepAlive(leaderCtx, lost)
			run(leaderCtx)
			lost()
			lock.release()
			log.Debug("leader lock: released", "key", key)
		}

		select {
		case <-ctx.Done():
		case <-time.After(leaderRetryDelay):
		}
	}
	return ctx.Err()
}

type leaderLock struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
}

func (l *leaderLock) tryAcquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
}

// keepAlive extends the lock at a third of its ttl and calls lost once the
// lock can no longer be extended.
func (l *leaderLock) keepAlive(ctx context.Context, lost context.CancelFunc) {
	interval := max(l.ttl/3, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := l.ownerOp(l.ttl.Milliseconds())
			if err != nil || !held {
				log.Warn("leader lock: lost", "key", l.key, "error", err)
				lost()
				return
			}
		}
	}
}

func (l *leaderLock) release() {
	if _, err := l.ownerOp(0); err != nil {
		log.Warn("leader lock: release failed", "key", l.key, "error", err)
	}
}

// ownerOp runs ownerScript detached from the caller's context so a release
// still happens during shutdown.
func (l *leaderLock) ownerOp(ttlMillis int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), leaderOpTimeout)
	defer cancel()

	res, err := ownerScript.Run(ctx, l.client, []string{l.key}, l.owner, ttlMillis).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return res > 0, nil
}

func leaderOwnerID() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString())
}
