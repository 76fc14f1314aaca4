package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/voicerooms/internal/core"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis mirrors broadcasts through Redis pub/sub channels named like
// the topics.
type Redis struct {
	client *redis.Client
	prefix string
	pubsub *redis.PubSub
}

var _ core.Fanout = (*Redis)(nil)

func NewRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	if url == "" {
		return nil, fmt.Errorf("redis: fanout.redis_url is not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Redis{client: c, prefix: prefix}, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	return r.client.Publish(ctx, topic, payload).Err()
}

// Subscribe listens on every channel under the prefix until Close.
func (r *Redis) Subscribe(ctx context.Context, h core.Handler) error {
	ps := r.client.PSubscribe(ctx, r.prefix+".*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis: psubscribe: %w", err)
	}
	r.pubsub = ps
	go func() {
		for msg := range ps.Channel() {
			h(msg.Channel, []byte(msg.Payload))
		}
		log.Debug().Str("module", "fanout").Str("driver", "redis").Msg("subscription closed")
	}()
	return nil
}

func (r *Redis) Close() error {
	if r.pubsub != nil {
		_ = r.pubsub.Close()
	}
	return r.client.Close()
}
