package app

import (
	"sync"
	"time"

	"github.com/dkeye/voicerooms/internal/clock"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultGracePeriod = 30 * time.Second

// GraceKey identifies one participant's pending removal.
type GraceKey struct {
	UserID domain.UserID
	RoomID domain.RoomID
}

type graceEntry struct {
	timer clock.Timer
	gen   uint64
}

// GraceManager holds at most one expiry timer per key. Timers live in
// process memory only.
type GraceManager struct {
	clock  clock.Clock
	period time.Duration

	mu     sync.Mutex
	timers map[GraceKey]graceEntry
	gen    uint64
	closed bool
}

func NewGraceManager(c clock.Clock, period time.Duration) *GraceManager {
	if c == nil {
		c = clock.Real()
	}
	if period <= 0 {
		period = DefaultGracePeriod
	}
	return &GraceManager{
		clock:  c,
		period: period,
		timers: make(map[GraceKey]graceEntry),
	}
}

func (g *GraceManager) Period() time.Duration { return g.period }

// Start schedules onExpire for key after the grace period. A timer
// already pending for key is stopped first.
func (g *GraceManager) Start(key GraceKey, onExpire func(GraceKey)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if prev, ok := g.timers[key]; ok {
		prev.timer.Stop()
		delete(g.timers, key)
	}
	g.gen++
	gen := g.gen
	timer := g.clock.AfterFunc(g.period, func() { g.fire(key, gen, onExpire) })
	g.timers[key] = graceEntry{timer: timer, gen: gen}
	log.Debug().Str("module", "app.grace").Str("user_id", string(key.UserID)).Str("room_id", string(key.RoomID)).Dur("period", g.period).Msg("grace period started")
}

func (g *GraceManager) fire(key GraceKey, gen uint64, onExpire func(GraceKey)) {
	g.mu.Lock()
	entry, ok := g.timers[key]
	if !ok || entry.gen != gen {
		// superseded or cancelled while the callback was being scheduled
		g.mu.Unlock()
		return
	}
	delete(g.timers, key)
	g.mu.Unlock()

	log.Info().Str("module", "app.grace").Str("user_id", string(key.UserID)).Str("room_id", string(key.RoomID)).Msg("grace period expired")
	onExpire(key)
}

// Cancel stops the pending timer for key. It reports whether one existed.
func (g *GraceManager) Cancel(key GraceKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.timers[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(g.timers, key)
	log.Debug().Str("module", "app.grace").Str("user_id", string(key.UserID)).Str("room_id", string(key.RoomID)).Msg("grace period cancelled")
	return true
}

func (g *GraceManager) Pending(key GraceKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.timers[key]
	return ok
}

func (g *GraceManager) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.timers)
}

// Stop clears every pending timer and refuses new ones. It returns the
// number of timers that were cleared.
func (g *GraceManager) Stop() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.timers)
	for key, entry := range g.timers {
		entry.timer.Stop()
		delete(g.timers, key)
	}
	g.closed = true
	log.Info().Str("module", "app.grace").Int("cleared", n).Msg("grace manager stopped")
	return n
}
