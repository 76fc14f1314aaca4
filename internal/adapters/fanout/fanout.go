// Package fanout bridges broadcasts between gateway instances.
package fanout

import (
	"context"
	"fmt"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/rs/zerolog/log"
)

const DefaultPrefix = "voicerooms"

type Options struct {
	Driver   string
	RedisURL string
	NatsURL  string
	Prefix   string
}

// RoomTopic is the subject a room's events are published on.
func RoomTopic(prefix, roomID string) string {
	return fmt.Sprintf("%s.room.%s", prefix, roomID)
}

// GlobalTopic carries events every connection may care about.
func GlobalTopic(prefix string) string {
	return prefix + ".global"
}

// Connect opens the configured broker. When the broker cannot be reached
// the returned fanout is a local bus and degraded is true; startup never
// fails because of the bridge.
func Connect(ctx context.Context, opts Options) (f core.Fanout, degraded bool) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	var err error
	switch opts.Driver {
	case "", "local":
		return NewLocal(), false
	case "redis":
		f, err = NewRedis(ctx, opts.RedisURL, opts.Prefix)
	case "nats":
		f, err = NewNats(opts.NatsURL, opts.Prefix)
	default:
		err = fmt.Errorf("unknown fanout driver %q", opts.Driver)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "fanout").Str("driver", opts.Driver).Msg("bridge unavailable, delivering to local connections only")
		return NewLocal(), true
	}
	log.Info().Str("module", "fanout").Str("driver", f.Name()).Str("prefix", opts.Prefix).Msg("bridge connected")
	return f, false
}
