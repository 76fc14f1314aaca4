package app

import "github.com/dkeye/voicerooms/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// BackpressurePolicy decides what happens to a connection whose send
// buffer is full.
type BackpressurePolicy interface {
	OnBackPressure(sid core.SessionID) BackpressureAction
}

// SimplePolicy kicks slow consumers; their teardown runs the regular
// disconnect path so the grace period still applies.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.SessionID) BackpressureAction {
	return KickMember
}
