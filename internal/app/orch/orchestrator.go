package orch

import (
	"context"
	"time"

	"github.com/dkeye/voicerooms/internal/app"
	"github.com/dkeye/voicerooms/internal/clock"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Orchestrator implements the room, role and chat services on top of the
// persistence collaborators. It holds no participant state of its own;
// every decision is taken against the rows the Store returns.
type Orchestrator struct {
	Store           core.Store
	Grants          core.GrantIssuer
	Policy          app.Policy
	Grace           *app.GraceManager
	Clock           clock.Clock
	MaxParticipants int
	// OnDetachedExpiry is told when the host of a room created without a
	// socket never connected within the grace period.
	OnDetachedExpiry func(*DepartureResult)

	newRoomID func() domain.RoomID
}

func New(store core.Store, grants core.GrantIssuer, grace *app.GraceManager, c clock.Clock, maxParticipants int) *Orchestrator {
	if c == nil {
		c = clock.Real()
	}
	if grace == nil {
		grace = app.NewGraceManager(c, app.DefaultGracePeriod)
	}
	return &Orchestrator{
		Store:           store,
		Grants:          grants,
		Policy:          app.HierarchyPolicy{},
		Grace:           grace,
		Clock:           c,
		MaxParticipants: maxParticipants,
		newRoomID:       func() domain.RoomID { return domain.RoomID(uuid.NewString()) },
	}
}

func (o *Orchestrator) now() time.Time { return o.Clock.Now().UTC() }

// issueGrant asks the media transport for a credential matching role.
func (o *Orchestrator) issueGrant(ctx context.Context, userID domain.UserID, roomID domain.RoomID, role domain.Role) (*core.MediaGrant, error) {
	grant, err := o.Grants.IssueGrant(ctx, userID, roomID, core.CapabilitiesFor(role))
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("user_id", string(userID)).Str("room_id", string(roomID)).Msg("issue media grant")
		return nil, domain.Internal(err, "failed to issue media grant")
	}
	return grant, nil
}

// activeRoom loads a room and rejects missing or ended ones.
func (o *Orchestrator) activeRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error) {
	room, err := o.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, domain.Wrap(err, "room not found")
	}
	if !room.IsActive {
		return nil, domain.NotFound("room not found")
	}
	return room, nil
}

// connectedParticipant loads a row that is currently connected.
func (o *Orchestrator) connectedParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.Participant, error) {
	p, err := o.Store.GetParticipant(ctx, roomID, userID)
	if err != nil {
		return nil, domain.Wrap(err, "participant not found in room")
	}
	if !p.IsConnected {
		return nil, domain.NotFound("participant not connected to room")
	}
	return p, nil
}

// views enriches participants with profile data. A failing profile
// lookup degrades to fallback profiles.
func (o *Orchestrator) views(ctx context.Context, ps []domain.Participant) []domain.ParticipantView {
	ids := make([]domain.UserID, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.UserID)
	}
	profiles, err := o.Store.Profiles(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Int("users", len(ids)).Msg("profile lookup failed")
		profiles = nil
	}
	out := make([]domain.ParticipantView, 0, len(ps))
	for _, p := range ps {
		prof, ok := profiles[p.UserID]
		if !ok {
			prof = domain.FallbackProfile(p.UserID)
		}
		out = append(out, domain.ParticipantView{Participant: p, DisplayName: prof.DisplayName, AvatarURL: prof.AvatarURL})
	}
	return out
}
