package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/voicerooms/internal/app/orch"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
)

type roleChange struct {
	RoomID       domain.RoomID       `json:"room_id"`
	Participant  *domain.Participant `json:"participant"`
	PreviousRole domain.Role         `json:"previous_role"`
	Grant        *core.MediaGrant    `json:"mediaGrant,omitempty"`
	By           domain.UserID       `json:"by"`
}

func (ctl *SignalWSController) requestMic(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	var p roomPayload
	if err := ctl.decode(data, &p); err != nil {
		return nil, err
	}
	mods, err := ctl.Orch.RequestMic(ctx, sess.UserID, p.RoomID)
	if err != nil {
		return nil, err
	}
	out := &Outcome{}
	if len(mods) > 0 {
		body := map[string]any{"room_id": p.RoomID, "userId": sess.UserID}
		out.Events = append(out.Events, roomEvent(p.RoomID, PushMicRequested, body).to(mods...))
	}
	return out, nil
}

type roleOp func(ctx context.Context, actor, target domain.UserID, room domain.RoomID, p targetPayload) (*orch.RoleResult, error)

// roleHandler wraps a role service call with the shared decode and the
// two notifications: the target's private push carrying its new grant,
// and the room-wide participant_updated.
func (ctl *SignalWSController) roleHandler(push string, op roleOp) handlerFunc {
	return func(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
		var p targetPayload
		if err := ctl.decode(data, &p); err != nil {
			return nil, err
		}
		res, err := op(ctx, sess.UserID, p.TargetID, p.RoomID, p)
		if err != nil {
			return nil, err
		}
		private := roleChange{RoomID: p.RoomID, Participant: res.Participant, PreviousRole: res.PreviousRole, Grant: res.Grant, By: sess.UserID}
		public := private
		public.Grant = nil
		return &Outcome{Events: []Envelope{
			roomEvent(p.RoomID, push, private).to(p.TargetID),
			roomEvent(p.RoomID, PushParticipantUpdated, public),
		}}, nil
	}
}

func (ctl *SignalWSController) grantMic(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	return ctl.roleHandler(PushMicGranted, func(ctx context.Context, a, t domain.UserID, r domain.RoomID, _ targetPayload) (*orch.RoleResult, error) {
		return ctl.Orch.GrantMic(ctx, a, t, r)
	})(ctx, sess, data)
}

func (ctl *SignalWSController) revokeMic(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	return ctl.roleHandler(PushMicRevoked, func(ctx context.Context, a, t domain.UserID, r domain.RoomID, _ targetPayload) (*orch.RoleResult, error) {
		return ctl.Orch.RevokeMic(ctx, a, t, r)
	})(ctx, sess, data)
}

func (ctl *SignalWSController) promoteUser(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	return ctl.roleHandler(PushRoleChanged, func(ctx context.Context, a, t domain.UserID, r domain.RoomID, p targetPayload) (*orch.RoleResult, error) {
		role, err := domain.ParseRole(p.Role)
		if err != nil {
			return nil, domain.Validation("role must be co-host, speaker or listener")
		}
		return ctl.Orch.Promote(ctx, a, t, r, role)
	})(ctx, sess, data)
}

func (ctl *SignalWSController) demoteUser(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	return ctl.roleHandler(PushRoleChanged, func(ctx context.Context, a, t domain.UserID, r domain.RoomID, _ targetPayload) (*orch.RoleResult, error) {
		return ctl.Orch.Demote(ctx, a, t, r)
	})(ctx, sess, data)
}

func (ctl *SignalWSController) removeUser(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	var p targetPayload
	if err := ctl.decode(data, &p); err != nil {
		return nil, err
	}
	res, err := ctl.Orch.Remove(ctx, sess.UserID, p.TargetID, p.RoomID)
	if err != nil {
		return nil, err
	}
	who := userInRoom{RoomID: p.RoomID, UserID: p.TargetID, Removed: true}
	evs := []Envelope{
		roomEvent(p.RoomID, PushRemovedFromRoom, map[string]any{"room_id": p.RoomID, "by": sess.UserID}).to(p.TargetID),
		roomEvent(p.RoomID, PushParticipantUpdated, map[string]any{"room_id": p.RoomID, "participant": res.Participant, "removed": true}),
	}
	evs = append(evs, departureEvents(res.Departure, who)...)
	return &Outcome{Events: evs}, nil
}
