package orch

import (
	"context"

	"github.com/dkeye/voicerooms/internal/app"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoleResult struct {
	Participant  *domain.Participant `json:"participant"`
	PreviousRole domain.Role         `json:"previous_role"`
	Grant        *core.MediaGrant    `json:"mediaGrant"`
}

type decision func(room *domain.Room, actor, target *domain.Participant) (app.Transition, error)

// resolve loads room, actor and target; both must be connected.
func (o *Orchestrator) resolve(ctx context.Context, roomID domain.RoomID, actorID, targetID domain.UserID) (*domain.Room, *domain.Participant, *domain.Participant, error) {
	room, err := o.activeRoom(ctx, roomID)
	if err != nil {
		return nil, nil, nil, err
	}
	actor, err := o.connectedParticipant(ctx, roomID, actorID)
	if err != nil {
		return nil, nil, nil, err
	}
	target, err := o.connectedParticipant(ctx, roomID, targetID)
	if err != nil {
		return nil, nil, nil, err
	}
	return room, actor, target, nil
}

// applyRole runs decide before touching anything, then persists the new
// role and reissues the target's grant.
func (o *Orchestrator) applyRole(ctx context.Context, op string, roomID domain.RoomID, actorID, targetID domain.UserID, decide decision) (*RoleResult, error) {
	room, actor, target, err := o.resolve(ctx, roomID, actorID, targetID)
	if err != nil {
		return nil, err
	}
	tr, err := decide(room, actor, target)
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("op", op).Str("room_id", string(roomID)).Str("actor", string(actorID)).Str("target", string(targetID)).Msg("role change rejected")
		return nil, err
	}
	if err := o.Store.UpdateRole(ctx, roomID, targetID, tr.Role, tr.MicEnabled); err != nil {
		return nil, domain.Wrap(err, "failed to update role")
	}
	prev := target.Role
	target.Role = tr.Role
	target.MicEnabled = tr.MicEnabled

	grant, err := o.issueGrant(ctx, targetID, roomID, tr.Role)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "orch").Str("op", op).Str("room_id", string(roomID)).Str("actor", string(actorID)).Str("target", string(targetID)).
		Str("from", prev.String()).Str("to", tr.Role.String()).Msg("role changed")
	return &RoleResult{Participant: target, PreviousRole: prev, Grant: grant}, nil
}

func (o *Orchestrator) Promote(ctx context.Context, actorID, targetID domain.UserID, roomID domain.RoomID, to domain.Role) (*RoleResult, error) {
	return o.applyRole(ctx, "promote", roomID, actorID, targetID, func(_ *domain.Room, a, t *domain.Participant) (app.Transition, error) {
		return o.Policy.Promote(a, t, to)
	})
}

func (o *Orchestrator) Demote(ctx context.Context, actorID, targetID domain.UserID, roomID domain.RoomID) (*RoleResult, error) {
	return o.applyRole(ctx, "demote", roomID, actorID, targetID, func(_ *domain.Room, a, t *domain.Participant) (app.Transition, error) {
		return o.Policy.Demote(a, t)
	})
}

func (o *Orchestrator) GrantMic(ctx context.Context, actorID, targetID domain.UserID, roomID domain.RoomID) (*RoleResult, error) {
	return o.applyRole(ctx, "grant_mic", roomID, actorID, targetID, func(_ *domain.Room, a, t *domain.Participant) (app.Transition, error) {
		return o.Policy.GrantMic(a, t)
	})
}

func (o *Orchestrator) RevokeMic(ctx context.Context, actorID, targetID domain.UserID, roomID domain.RoomID) (*RoleResult, error) {
	return o.applyRole(ctx, "revoke_mic", roomID, actorID, targetID, func(_ *domain.Room, a, t *domain.Participant) (app.Transition, error) {
		return o.Policy.RevokeMic(a, t)
	})
}

type RemoveResult struct {
	Participant *domain.Participant `json:"participant"`
	Departure   *DepartureResult    `json:"departure"`
}

// Remove deletes the target's row immediately. No grace period applies.
func (o *Orchestrator) Remove(ctx context.Context, actorID, targetID domain.UserID, roomID domain.RoomID) (*RemoveResult, error) {
	room, actor, target, err := o.resolve(ctx, roomID, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if _, err := o.Policy.Remove(room, actor, target); err != nil {
		return nil, err
	}
	if _, err := o.Store.DeleteParticipant(ctx, roomID, targetID); err != nil {
		return nil, domain.Wrap(err, "failed to remove participant")
	}
	o.Grace.Cancel(app.GraceKey{UserID: targetID, RoomID: roomID})
	log.Info().Str("module", "orch").Str("room_id", string(roomID)).Str("actor", string(actorID)).Str("target", string(targetID)).Msg("participant removed")

	dep, err := o.afterDeparture(ctx, roomID, targetID)
	if err != nil {
		return nil, err
	}
	return &RemoveResult{Participant: target, Departure: dep}, nil
}

// RequestMic returns the connected moderators who should hear about a
// listener asking to speak.
func (o *Orchestrator) RequestMic(ctx context.Context, userID domain.UserID, roomID domain.RoomID) ([]domain.UserID, error) {
	if _, err := o.activeRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if _, err := o.connectedParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}
	ps, err := o.Store.ListConnected(ctx, roomID)
	if err != nil {
		return nil, domain.Wrap(err, "failed to list participants")
	}
	var mods []domain.UserID
	for _, p := range ps {
		if p.Role.Moderates() && p.UserID != userID {
			mods = append(mods, p.UserID)
		}
	}
	return mods, nil
}
