package app

import (
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
)

// Transition is the state a privileged action leaves its target in.
type Transition struct {
	Role       domain.Role
	MicEnabled bool
	Remove     bool
}

func (t Transition) Capabilities() core.Capabilities {
	return core.CapabilitiesFor(t.Role)
}

// Policy decides privileged actions between two participants of the same
// room. Every check runs before anything is mutated; a returned error
// means nothing may be applied.
type Policy interface {
	Promote(actor, target *domain.Participant, to domain.Role) (Transition, error)
	Demote(actor, target *domain.Participant) (Transition, error)
	GrantMic(actor, target *domain.Participant) (Transition, error)
	RevokeMic(actor, target *domain.Participant) (Transition, error)
	Remove(room *domain.Room, actor, target *domain.Participant) (Transition, error)
}

// HierarchyPolicy enforces host > co-host > speaker > listener.
type HierarchyPolicy struct{}

var _ Policy = HierarchyPolicy{}

func requireModerator(actor *domain.Participant) error {
	if !actor.Role.Moderates() {
		return domain.Forbidden("only the host or a co-host can do that")
	}
	return nil
}

func requireOutranks(actor, target *domain.Participant) error {
	if target.Role.Rank() >= actor.Role.Rank() {
		return domain.Forbidden("cannot act on a participant of equal or higher role")
	}
	return nil
}

func (HierarchyPolicy) Promote(actor, target *domain.Participant, to domain.Role) (Transition, error) {
	if err := requireModerator(actor); err != nil {
		return Transition{}, err
	}
	if !to.Valid() {
		return Transition{}, domain.Validation("unknown role")
	}
	if to.Rank() >= actor.Role.Rank() {
		return Transition{}, domain.Forbidden("cannot grant a role equal to or above your own")
	}
	if to.Rank() <= target.Role.Rank() {
		return Transition{}, domain.Forbidden("promotion must raise the participant's role")
	}
	if to == domain.RoleCoHost && actor.Role != domain.RoleHost {
		return Transition{}, domain.Forbidden("only the host can appoint co-hosts")
	}
	return Transition{Role: to, MicEnabled: to != domain.RoleListener}, nil
}

func (HierarchyPolicy) Demote(actor, target *domain.Participant) (Transition, error) {
	if err := requireModerator(actor); err != nil {
		return Transition{}, err
	}
	if err := requireOutranks(actor, target); err != nil {
		return Transition{}, err
	}
	return Transition{Role: domain.RoleListener, MicEnabled: false}, nil
}

// GrantMic moves the target to speaker with an open mic whatever its
// current lower role is.
func (HierarchyPolicy) GrantMic(actor, target *domain.Participant) (Transition, error) {
	if err := requireModerator(actor); err != nil {
		return Transition{}, err
	}
	if err := requireOutranks(actor, target); err != nil {
		return Transition{}, err
	}
	return Transition{Role: domain.RoleSpeaker, MicEnabled: true}, nil
}

func (HierarchyPolicy) RevokeMic(actor, target *domain.Participant) (Transition, error) {
	if err := requireModerator(actor); err != nil {
		return Transition{}, err
	}
	if err := requireOutranks(actor, target); err != nil {
		return Transition{}, err
	}
	return Transition{Role: domain.RoleListener, MicEnabled: false}, nil
}

func (HierarchyPolicy) Remove(room *domain.Room, actor, target *domain.Participant) (Transition, error) {
	if actor.Role != domain.RoleHost {
		return Transition{}, domain.Forbidden("only the host can remove participants")
	}
	if target.UserID == room.HostID || target.Role == domain.RoleHost {
		return Transition{}, domain.Forbidden("the host cannot be removed")
	}
	return Transition{Role: target.Role, Remove: true}, nil
}
