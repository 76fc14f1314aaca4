package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/voicerooms/internal/app/orch"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomCount struct {
	RoomID           domain.RoomID `json:"room_id"`
	ParticipantCount int           `json:"participant_count"`
}

type userInRoom struct {
	RoomID  domain.RoomID `json:"room_id"`
	UserID  domain.UserID `json:"user_id"`
	Expired bool          `json:"expired,omitempty"`
	Removed bool          `json:"removed,omitempty"`
}

func (ctl *SignalWSController) createRoom(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	var p createRoomPayload
	if err := ctl.decode(data, &p); err != nil {
		return nil, err
	}
	res, err := ctl.Orch.CreateRoom(ctx, sess.UserID, p.Title, p.Type, sess.SID)
	if err != nil {
		return nil, err
	}
	ctl.Registry.JoinRoom(sess.SID, res.Room.ID)
	summary := domain.RoomSummary{Room: *res.Room, ParticipantCount: 1}
	return &Outcome{
		Ack:    res,
		Events: []Envelope{globalEvent(PushRoomCreated, summary)},
	}, nil
}

func (ctl *SignalWSController) joinRoom(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	var p roomPayload
	if err := ctl.decode(data, &p); err != nil {
		return nil, err
	}
	res, err := ctl.Orch.JoinRoom(ctx, sess.UserID, p.RoomID, sess.SID)
	if err != nil {
		return nil, err
	}
	ctl.Registry.JoinRoom(sess.SID, p.RoomID)

	var joined any = res.Participant
	for _, v := range res.Participants {
		if v.UserID == sess.UserID {
			joined = v
		}
	}
	return &Outcome{
		Ack: res,
		Events: []Envelope{
			roomEvent(p.RoomID, PushParticipantJoined, joined).except(sess.SID),
			globalEvent(PushRoomUpdated, roomCount{RoomID: p.RoomID, ParticipantCount: len(res.Participants)}),
		},
	}, nil
}

func (ctl *SignalWSController) leaveRoom(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	var p roomPayload
	if err := ctl.decode(data, &p); err != nil {
		return nil, err
	}
	dep, err := ctl.Orch.LeaveRoom(ctx, sess.UserID, p.RoomID)
	if err != nil {
		return nil, err
	}
	ctl.Registry.LeaveRoom(sess.SID, p.RoomID)
	return &Outcome{Events: departureEvents(dep, userInRoom{RoomID: p.RoomID, UserID: sess.UserID})}, nil
}

// departureEvents announces someone leaving and, when that emptied the
// room, its removal from the lobby.
func departureEvents(dep *orch.DepartureResult, who userInRoom) []Envelope {
	evs := []Envelope{
		roomEvent(dep.RoomID, PushParticipantLeft, who),
		globalEvent(PushRoomUpdated, roomCount{RoomID: dep.RoomID, ParticipantCount: dep.Count}),
	}
	if dep.RoomEnded {
		evs = append(evs, globalEvent(PushRoomRemoved, map[string]domain.RoomID{"room_id": dep.RoomID}))
	}
	return evs
}

func (ctl *SignalWSController) endRoom(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	var p roomPayload
	if err := ctl.decode(data, &p); err != nil {
		return nil, err
	}
	if _, err := ctl.Orch.EndRoom(ctx, sess.UserID, p.RoomID); err != nil {
		return nil, err
	}
	return &Outcome{Events: ctl.EndedEvents(p.RoomID)}, nil
}

// EndedEvents tells the room it is over, then drops it from the lobby.
func (ctl *SignalWSController) EndedEvents(roomID domain.RoomID) []Envelope {
	body := map[string]domain.RoomID{"room_id": roomID}
	return []Envelope{
		roomEvent(roomID, PushRoomEnded, body),
		globalEvent(PushRoomRemoved, body),
	}
}

// Announce publishes events produced outside a socket request, such as
// HTTP calls.
func (ctl *SignalWSController) Announce(ctx context.Context, evs ...Envelope) {
	for _, e := range evs {
		ctl.publish(ctx, e)
	}
}

// RoomCreatedEvent is the lobby announcement for a room created over
// HTTP. Its host is not connected yet.
func RoomCreatedEvent(room *domain.Room) Envelope {
	return globalEvent(PushRoomCreated, domain.RoomSummary{Room: *room})
}

func (ctl *SignalWSController) restoreRoomState(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	var p restorePayload
	if err := ctl.decode(data, &p); err != nil {
		return nil, err
	}
	res, err := ctl.Orch.RestoreRoomState(ctx, sess.UserID, p.RoomID, sess.SID, p.LastMessageAt)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Ack: res}
	if res.Participant != nil {
		ctl.Registry.JoinRoom(sess.SID, p.RoomID)
		out.Events = append(out.Events, roomEvent(p.RoomID, PushParticipantReconnected, res.Participant).except(sess.SID))
	}
	log.Debug().Str("module", "signal").Str("sid", string(sess.SID)).Str("room_id", string(p.RoomID)).Bool("seated", res.Participant != nil).Msg("restore")
	return out, nil
}
