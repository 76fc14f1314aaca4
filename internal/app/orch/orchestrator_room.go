package orch

import (
	"context"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/rs/zerolog/log"
)

type CreateResult struct {
	Room        *domain.Room        `json:"room"`
	Participant *domain.Participant `json:"participant"`
	Grant       *core.MediaGrant    `json:"mediaGrant"`
}

// CreateRoom persists an active room hosted by hostID and seats the host
// with an open mic. An empty socketID means the room was created over
// HTTP: the host row starts disconnected under a grace period and the
// host's first join_room connects it. Rooms whose host never connects
// expire like any abandoned room.
func (o *Orchestrator) CreateRoom(ctx context.Context, hostID domain.UserID, title string, typ domain.RoomType, socketID core.SessionID) (*CreateResult, error) {
	room, err := domain.NewRoom(hostID, title, typ, o.MaxParticipants)
	if err != nil {
		return nil, err
	}
	room.ID = o.newRoomID()
	room.CreatedAt = o.now()
	if err := o.Store.CreateRoom(ctx, room); err != nil {
		return nil, domain.Wrap(err, "failed to create room")
	}

	host := domain.NewParticipant(room, hostID, string(socketID), room.CreatedAt)
	detached := socketID == ""
	if detached {
		at := room.CreatedAt
		host.IsConnected = false
		host.DisconnectedAt = &at
	}
	if err := o.Store.UpsertParticipant(ctx, host); err != nil {
		return nil, domain.Wrap(err, "failed to seat host")
	}
	if detached {
		o.startGrace(hostID, room.ID, o.OnDetachedExpiry)
	}
	grant, err := o.issueGrant(ctx, hostID, room.ID, host.Role)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "orch").Str("room_id", string(room.ID)).Str("user_id", string(hostID)).Str("type", string(room.Type)).Bool("detached", detached).Msg("room created")
	return &CreateResult{Room: room, Participant: host, Grant: grant}, nil
}

func (o *Orchestrator) ListActiveRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	rooms, err := o.Store.ListActiveRooms(ctx)
	if err != nil {
		return nil, domain.Wrap(err, "failed to list rooms")
	}
	ids := make([]domain.RoomID, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	counts, err := o.Store.CountConnectedByRoom(ctx, ids)
	if err != nil {
		return nil, domain.Wrap(err, "failed to count participants")
	}
	out := make([]domain.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, domain.RoomSummary{Room: r, ParticipantCount: counts[r.ID]})
	}
	return out, nil
}

type RoomState struct {
	Room         *domain.Room             `json:"room"`
	Participants []domain.ParticipantView `json:"participants"`
}

// GetRoomState returns the room with its connected participants. Ended
// rooms are still readable.
func (o *Orchestrator) GetRoomState(ctx context.Context, roomID domain.RoomID) (*RoomState, error) {
	room, err := o.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, domain.Wrap(err, "room not found")
	}
	ps, err := o.Store.ListConnected(ctx, roomID)
	if err != nil {
		return nil, domain.Wrap(err, "failed to list participants")
	}
	return &RoomState{Room: room, Participants: o.views(ctx, ps)}, nil
}

// EndRoom lets the recorded host close the room. All participant rows
// are purged.
func (o *Orchestrator) EndRoom(ctx context.Context, actorID domain.UserID, roomID domain.RoomID) (*domain.Room, error) {
	room, err := o.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, domain.Wrap(err, "room not found")
	}
	if room.HostID != actorID {
		return nil, domain.Forbidden("only the host can end the room")
	}
	if !room.IsActive {
		return nil, domain.NotFound("room already ended")
	}
	if err := o.destroy(ctx, room); err != nil {
		return nil, err
	}
	log.Info().Str("module", "orch").Str("room_id", string(roomID)).Str("user_id", string(actorID)).Msg("room ended by host")
	return room, nil
}

// destroy ends the room and purges every row. Grace timers still pending
// for purged rows find nothing to delete when they fire.
func (o *Orchestrator) destroy(ctx context.Context, room *domain.Room) error {
	if _, err := o.Store.DeactivateRoom(ctx, room.ID); err != nil {
		return domain.Wrap(err, "failed to end room")
	}
	n, err := o.Store.DeleteAllParticipants(ctx, room.ID)
	if err != nil {
		return domain.Wrap(err, "failed to purge participants")
	}
	room.IsActive = false
	log.Debug().Str("module", "orch").Str("room_id", string(room.ID)).Int("purged", n).Msg("room destroyed")
	return nil
}

// DepartureResult reports the room's state after someone left.
type DepartureResult struct {
	RoomID    domain.RoomID `json:"room_id"`
	UserID    domain.UserID `json:"user_id"`
	Count     int           `json:"participant_count"`
	RoomEnded bool          `json:"room_ended"`
}

// afterDeparture recomputes the connected count and self-destroys an
// empty room.
func (o *Orchestrator) afterDeparture(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*DepartureResult, error) {
	res := &DepartureResult{RoomID: roomID, UserID: userID}
	n, err := o.Store.CountConnected(ctx, roomID)
	if err != nil {
		return nil, domain.Wrap(err, "failed to count participants")
	}
	res.Count = n
	if n > 0 {
		return res, nil
	}
	room, err := o.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, domain.Wrap(err, "room not found")
	}
	if !room.IsActive {
		return res, nil
	}
	if err := o.destroy(ctx, room); err != nil {
		return nil, err
	}
	res.RoomEnded = true
	log.Info().Str("module", "orch").Str("room_id", string(roomID)).Msg("empty room auto-destroyed")
	return res, nil
}
