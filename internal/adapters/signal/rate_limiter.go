package signal

import (
	"sync"
	"time"

	"github.com/dkeye/voicerooms/internal/clock"
	"github.com/dkeye/voicerooms/internal/core"
	"golang.org/x/time/rate"
)

type limiterPair struct {
	events *rate.Limiter
	chat   *rate.Limiter
}

// RateLimiter caps events per connection: a general budget for every
// event and a separate one for chat sends. Budgets refill continuously
// so n events per window are allowed in a burst.
type RateLimiter struct {
	mu    sync.Mutex
	conns map[core.SessionID]*limiterPair
	clock clock.Clock

	events      rate.Limit
	eventsBurst int
	chat        rate.Limit
	chatBurst   int
}

func NewRateLimiter(c clock.Clock, events int, eventsWindow time.Duration, chat int, chatWindow time.Duration) *RateLimiter {
	if c == nil {
		c = clock.Real()
	}
	return &RateLimiter{
		conns:       make(map[core.SessionID]*limiterPair),
		clock:       c,
		events:      rate.Every(eventsWindow / time.Duration(events)),
		eventsBurst: events,
		chat:        rate.Every(chatWindow / time.Duration(chat)),
		chatBurst:   chat,
	}
}

func (rl *RateLimiter) Allow(sid core.SessionID, event string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lp, ok := rl.conns[sid]
	if !ok {
		lp = &limiterPair{
			events: rate.NewLimiter(rl.events, rl.eventsBurst),
			chat:   rate.NewLimiter(rl.chat, rl.chatBurst),
		}
		rl.conns[sid] = lp
	}
	now := rl.clock.Now()
	if !lp.events.AllowN(now, 1) {
		return false
	}
	if event == EvSendMessage {
		return lp.chat.AllowN(now, 1)
	}
	return true
}

func (rl *RateLimiter) Forget(sid core.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.conns, sid)
}
