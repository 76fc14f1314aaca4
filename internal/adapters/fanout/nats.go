package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Nats mirrors broadcasts over NATS subjects; topics map one to one.
type Nats struct {
	nc     *nats.Conn
	prefix string
	sub    *nats.Subscription
}

var _ core.Fanout = (*Nats)(nil)

func NewNats(url, prefix string) (*Nats, error) {
	if url == "" {
		return nil, fmt.Errorf("nats: fanout.nats_url is not set")
	}
	nc, err := nats.Connect(url,
		nats.Name("voicerooms-gateway"),
		nats.Timeout(3*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Str("module", "fanout").Str("driver", "nats").Msg("disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("module", "fanout").Str("driver", "nats").Str("url", nc.ConnectedUrl()).Msg("reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	return &Nats{nc: nc, prefix: prefix}, nil
}

func (n *Nats) Name() string { return "nats" }

func (n *Nats) Publish(_ context.Context, topic string, payload []byte) error {
	return n.nc.Publish(topic, payload)
}

func (n *Nats) Subscribe(_ context.Context, h core.Handler) error {
	sub, err := n.nc.Subscribe(n.prefix+".>", func(m *nats.Msg) {
		h(m.Subject, m.Data)
	})
	if err != nil {
		return fmt.Errorf("nats: subscribe: %w", err)
	}
	n.sub = sub
	return nil
}

func (n *Nats) Close() error {
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
	}
	n.nc.Close()
	return nil
}
