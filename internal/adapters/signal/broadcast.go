package signal

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/dkeye/voicerooms/internal/adapters/fanout"
	"github.com/dkeye/voicerooms/internal/app"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	PushRoomCreated            = "room_created"
	PushRoomUpdated            = "room_updated"
	PushRoomEnded              = "room_ended"
	PushRoomRemoved            = "room_removed"
	PushParticipantJoined      = "participant_joined"
	PushParticipantLeft        = "participant_left"
	PushParticipantUpdated     = "participant_updated"
	PushParticipantReconnected = "participant_reconnected"
	PushParticipantDisconnect  = "participant_disconnected"
	PushMicRequested           = "mic_requested"
	PushMicGranted             = "mic_granted"
	PushMicRevoked             = "mic_revoked"
	PushRoleChanged            = "role_changed"
	PushRemovedFromRoom        = "removed_from_room"
	PushReceiveMessage         = "receive_message"
)

// Envelope is what travels over the fanout. Room scopes delivery to the
// connections bound to that room, Users narrows it to those users and
// Exclude skips the connection that caused the event. With neither Room
// nor Users set the event goes to every connection.
type Envelope struct {
	Origin  string          `json:"origin"`
	Room    domain.RoomID   `json:"room,omitempty"`
	Users   []domain.UserID `json:"users,omitempty"`
	Exclude core.SessionID  `json:"exclude,omitempty"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal event")
		return nil
	}
	return b
}

func roomEvent(room domain.RoomID, event string, data any) Envelope {
	return Envelope{Room: room, Event: event, Data: mustJSON(data)}
}

func globalEvent(event string, data any) Envelope {
	return Envelope{Event: event, Data: mustJSON(data)}
}

func (e Envelope) except(sid core.SessionID) Envelope {
	e.Exclude = sid
	return e
}

func (e Envelope) to(users ...domain.UserID) Envelope {
	e.Users = users
	return e
}

func (ctl *SignalWSController) topic(e Envelope) string {
	if e.Room != "" {
		return fanout.RoomTopic(ctl.opts.Prefix, string(e.Room))
	}
	return fanout.GlobalTopic(ctl.opts.Prefix)
}

// publish hands an event to the fanout. Every instance, this one
// included, delivers it from its subscription; when the bridge rejects
// the publish this instance delivers locally.
func (ctl *SignalWSController) publish(ctx context.Context, e Envelope) {
	e.Origin = ctl.opts.InstanceID
	payload, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", e.Event).Msg("marshal envelope")
		return
	}
	if err := ctl.Fanout.Publish(ctx, ctl.topic(e), payload); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("driver", ctl.Fanout.Name()).Str("event", e.Event).Msg("fanout publish failed, delivering locally")
		ctl.deliver(e)
	}
}

func (ctl *SignalWSController) onFanout(topic string, payload []byte) {
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("topic", topic).Msg("bad fanout payload")
		return
	}
	ctl.deliver(e)
}

func (ctl *SignalWSController) targets(e Envelope) []app.RegSnap {
	var pool []app.RegSnap
	switch {
	case e.Room != "":
		pool = ctl.Registry.MembersOfRoom(e.Room)
	case len(e.Users) > 0:
		for _, u := range e.Users {
			pool = append(pool, ctl.Registry.SessionsOfUser(u)...)
		}
		return slices.DeleteFunc(pool, func(s app.RegSnap) bool { return s.SID == e.Exclude })
	default:
		pool = ctl.Registry.All()
	}
	return slices.DeleteFunc(pool, func(s app.RegSnap) bool {
		if s.SID == e.Exclude {
			return true
		}
		return len(e.Users) > 0 && !slices.Contains(e.Users, s.Session.UserID)
	})
}

// deliver writes an event to the matching local connections and applies
// its effect on local room bindings.
func (ctl *SignalWSController) deliver(e Envelope) {
	frame := mustJSON(Push{Type: e.Event, Data: e.Data})
	for _, snap := range ctl.targets(e) {
		if err := snap.Session.Signal.TrySend(core.Frame(frame)); err != nil {
			ctl.onSendError(snap.SID, snap.Session.Signal, err)
		}
	}
	switch e.Event {
	case PushRemovedFromRoom:
		for _, u := range e.Users {
			ctl.Registry.DropUserFromRoom(u, e.Room)
		}
	case PushRoomEnded:
		ctl.Registry.DropRoom(e.Room)
	}
}

func (ctl *SignalWSController) onSendError(sid core.SessionID, conn core.SignalConnection, err error) {
	if !errors.Is(err, ErrBackpressure) {
		return
	}
	switch ctl.Backpressure.OnBackPressure(sid) {
	case app.KickMember:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("send buffer full, closing connection")
		ctl.Registry.Cancel(sid)
		conn.Close()
	case app.DropFrame, app.NoAction:
	}
}
