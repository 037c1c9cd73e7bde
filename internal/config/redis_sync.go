package config

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	redisSettingsKey     = "clansite:settings"
	redisSettingsChannel = "clansite:settings:updates"
	redisOpTimeout       = 5 * time.Second
)

type redisSync struct {
	client *redis.Client
	ctx    context.Context
}

// EnableRedisSync shares settings changes between instances through redis.
// Settings already stored in redis win over the local file; otherwise the
// local settings are published. Updates are received until ctx is done.
func (m *Manager) EnableRedisSync(ctx context.Context, client *redis.Client) {
	if client == nil {
		log.Warn("Settings synchronization disabled: redis client is nil")
		return
	}

	m.mu.Lock()
	if m.remote != nil {
		m.mu.Unlock()
		return
	}
	m.remote = &redisSync{client: client, ctx: ctx}
	remote := m.remote
	m.mu.Unlock()

	loaded, err := m.loadFromRedis(ctx, client)
	if err != nil {
		log.Error("Settings sync: failed to load settings from redis", "error", err)
	}

	if !loaded {
		if err := m.Update(func(*Settings) {}); err != nil {
			log.Error("Settings sync: failed to publish settings to redis", "error", err)
		}
	}

	go m.subscribe(remote)
}

func (m *Manager) loadFromRedis(ctx context.Context, client *redis.Client) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	payload, err := client.Get(opCtx, redisSettingsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	settings, err := parseSettings(payload)
	if err != nil {
		return true, err
	}

	return true, m.apply(settings, updateOptions{persistToFile: true, source: "redis"})
}

func (m *Manager) subscribe(remote *redisSync) {
	pubsub := remote.client.Subscribe(remote.ctx, redisSettingsChannel)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(remote.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) || remote.ctx.Err() != nil {
				return
			}
			log.Error("Settings sync: subscription error", "error", err)
			time.Sleep(time.Second)
			continue
		}

		settings, err := parseSettings([]byte(msg.Payload))
		if err != nil {
			log.Error("Settings sync: invalid payload", "error", err)
			continue
		}

		if err := m.apply(settings, updateOptions{persistToFile: true, source: "redis"}); err != nil {
			log.Error("Settings sync: failed to apply remote update", "error", err)
		}
	}
}

func (r *redisSync) publish(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	ctx := r.ctx
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := r.client.Set(opCtx, redisSettingsKey, payload, 0).Err(); err != nil {
		return err
	}
	return r.client.Publish(opCtx, redisSettingsChannel, payload).Err()
}
