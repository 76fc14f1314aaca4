package fanout

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/voicerooms/internal/core"
)

var ErrClosed = errors.New("fanout closed")

// Local is an in-process bus. Publish hands the payload to every handler
// synchronously, so it only reaches connections of this instance.
type Local struct {
	mu       sync.RWMutex
	handlers []core.Handler
	closed   bool
}

var _ core.Fanout = (*Local)(nil)

func NewLocal() *Local { return &Local{} }

func (l *Local) Name() string { return "local" }

func (l *Local) Publish(_ context.Context, topic string, payload []byte) error {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	hs := append([]core.Handler(nil), l.handlers...)
	l.mu.RUnlock()
	for _, h := range hs {
		h(topic, payload)
	}
	return nil
}

func (l *Local) Subscribe(_ context.Context, h core.Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.handlers = append(l.handlers, h)
	return nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.handlers = nil
	return nil
}
