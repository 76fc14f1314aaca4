package orch

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/voicerooms/internal/app"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/rs/zerolog/log"
)

type JoinResult struct {
	Room           *domain.Room             `json:"room"`
	Participant    *domain.Participant      `json:"participant"`
	Grant          *core.MediaGrant         `json:"mediaGrant"`
	Participants   []domain.ParticipantView `json:"participants"`
	RecentMessages []domain.Message         `json:"recentMessages"`
	Reconnected    bool                     `json:"reconnected"`
}

// JoinRoom seats userID in roomID bound to socketID. An existing row is
// reused, so rejoining never duplicates a participant. A pending grace
// timer for the pair is cancelled once the row is connected again.
func (o *Orchestrator) JoinRoom(ctx context.Context, userID domain.UserID, roomID domain.RoomID, socketID core.SessionID) (*JoinResult, error) {
	room, err := o.activeRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	existing, err := o.Store.GetParticipant(ctx, roomID, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Wrap(err, "failed to load participant")
	}
	if err := o.ensureSeat(ctx, room, existing); err != nil {
		return nil, err
	}

	p := existing
	reconnected := existing != nil
	if reconnected {
		p.Reconnect(room, string(socketID))
	} else {
		p = domain.NewParticipant(room, userID, string(socketID), o.now())
	}
	if err := o.Store.UpsertParticipant(ctx, p); err != nil {
		return nil, domain.Wrap(err, "failed to join room")
	}
	if o.Grace.Cancel(app.GraceKey{UserID: userID, RoomID: roomID}) {
		reconnected = true
	}

	grant, err := o.issueGrant(ctx, userID, roomID, p.Role)
	if err != nil {
		return nil, err
	}
	res := &JoinResult{Room: room, Participant: p, Grant: grant, Reconnected: reconnected}
	if res.Participants, err = o.participantViews(ctx, roomID); err != nil {
		return nil, err
	}
	if res.RecentMessages, err = o.recentMessages(ctx, roomID); err != nil {
		return nil, err
	}
	log.Info().Str("module", "orch").Str("room_id", string(roomID)).Str("user_id", string(userID)).Str("sid", string(socketID)).
		Str("role", p.Role.String()).Bool("reconnected", reconnected).Msg("joined room")
	return res, nil
}

// LeaveRoom removes the caller's row outright, without a grace period.
func (o *Orchestrator) LeaveRoom(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (*DepartureResult, error) {
	deleted, err := o.Store.DeleteParticipant(ctx, roomID, userID)
	if err != nil {
		return nil, domain.Wrap(err, "failed to leave room")
	}
	if !deleted {
		return nil, domain.NotFound("not a participant of this room")
	}
	o.Grace.Cancel(app.GraceKey{UserID: userID, RoomID: roomID})
	log.Info().Str("module", "orch").Str("room_id", string(roomID)).Str("user_id", string(userID)).Msg("left room")
	return o.afterDeparture(ctx, roomID, userID)
}

// Disconnect records a transport loss for the row bound to socketID and
// starts its grace period. It reports false when the row is already
// bound to another connection, in which case nothing changes.
// onExpire runs from the timer goroutine after the row has been removed.
func (o *Orchestrator) Disconnect(ctx context.Context, userID domain.UserID, roomID domain.RoomID, socketID core.SessionID, onExpire func(*DepartureResult)) (bool, error) {
	marked, err := o.Store.MarkDisconnected(ctx, roomID, userID, string(socketID), o.now())
	if err != nil {
		return false, domain.Wrap(err, "failed to record disconnect")
	}
	if !marked {
		log.Debug().Str("module", "orch").Str("room_id", string(roomID)).Str("user_id", string(userID)).Str("sid", string(socketID)).Msg("disconnect ignored, row rebound")
		return false, nil
	}
	o.startGrace(userID, roomID, onExpire)
	log.Info().Str("module", "orch").Str("room_id", string(roomID)).Str("user_id", string(userID)).Str("sid", string(socketID)).
		Dur("grace", o.Grace.Period()).Msg("participant disconnected")
	return true, nil
}

// startGrace schedules removal of a disconnected row. onExpire runs from
// the timer goroutine only when the row was actually removed.
func (o *Orchestrator) startGrace(userID domain.UserID, roomID domain.RoomID, onExpire func(*DepartureResult)) {
	o.Grace.Start(app.GraceKey{UserID: userID, RoomID: roomID}, func(k app.GraceKey) {
		res, err := o.ExpireParticipant(context.Background(), k.RoomID, k.UserID)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Str("room_id", string(k.RoomID)).Str("user_id", string(k.UserID)).Msg("grace expiry")
			return
		}
		if res != nil && onExpire != nil {
			onExpire(res)
		}
	})
}

// ExpireParticipant deletes a row whose grace period ran out. A row that
// reconnected in the meantime, possibly on another instance, is kept and
// nil is returned.
func (o *Orchestrator) ExpireParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*DepartureResult, error) {
	deleted, err := o.Store.DeleteIfDisconnected(ctx, roomID, userID)
	if err != nil {
		return nil, domain.Wrap(err, "failed to expire participant")
	}
	if !deleted {
		return nil, nil
	}
	return o.afterDeparture(ctx, roomID, userID)
}

type RestoreResult struct {
	Room           *domain.Room             `json:"room"`
	Participant    *domain.Participant      `json:"participant,omitempty"`
	Participants   []domain.ParticipantView `json:"participants"`
	MissedMessages []domain.Message         `json:"missedMessages"`
	Grant          *core.MediaGrant         `json:"mediaGrant,omitempty"`
}

// RestoreRoomState rebinds an existing seat to socketID and returns what
// the client missed. Without since the latest page is returned in
// chronological order. Callers without a seat get the room snapshot only.
func (o *Orchestrator) RestoreRoomState(ctx context.Context, userID domain.UserID, roomID domain.RoomID, socketID core.SessionID, since *time.Time) (*RestoreResult, error) {
	room, err := o.activeRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	res := &RestoreResult{Room: room}

	p, err := o.Store.GetParticipant(ctx, roomID, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, domain.Wrap(err, "failed to load participant")
	default:
		if err := o.ensureSeat(ctx, room, p); err != nil {
			return nil, err
		}
		p.Reconnect(room, string(socketID))
		if err := o.Store.UpsertParticipant(ctx, p); err != nil {
			return nil, domain.Wrap(err, "failed to restore participant")
		}
		o.Grace.Cancel(app.GraceKey{UserID: userID, RoomID: roomID})
		if res.Grant, err = o.issueGrant(ctx, userID, roomID, p.Role); err != nil {
			return nil, err
		}
		res.Participant = p
	}

	if res.Participants, err = o.participantViews(ctx, roomID); err != nil {
		return nil, err
	}
	if since != nil {
		res.MissedMessages, err = o.GetMessagesSince(ctx, roomID, *since)
	} else {
		res.MissedMessages, err = o.recentMessages(ctx, roomID)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "orch").Str("room_id", string(roomID)).Str("user_id", string(userID)).Bool("seated", res.Participant != nil).Int("missed", len(res.MissedMessages)).Msg("room state restored")
	return res, nil
}

// ensureSeat rejects taking a connected seat in a full room. A row that
// is still connected already holds its seat.
func (o *Orchestrator) ensureSeat(ctx context.Context, room *domain.Room, existing *domain.Participant) error {
	if existing != nil && existing.IsConnected {
		return nil
	}
	n, err := o.Store.CountConnected(ctx, room.ID)
	if err != nil {
		return domain.Wrap(err, "failed to count participants")
	}
	if n >= room.MaxParticipants {
		return domain.RoomFull("room is full")
	}
	return nil
}

func (o *Orchestrator) participantViews(ctx context.Context, roomID domain.RoomID) ([]domain.ParticipantView, error) {
	ps, err := o.Store.ListConnected(ctx, roomID)
	if err != nil {
		return nil, domain.Wrap(err, "failed to list participants")
	}
	return o.views(ctx, ps), nil
}
