package signal

import (
	"context"
	"time"

	"github.com/dkeye/voicerooms/internal/app/orch"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/rs/zerolog/log"
)

// teardown runs once per connection after its read pump stops. Every
// room it was bound to gets a disconnect mark and a grace period.
// Failures are logged and swallowed.
func (ctl *SignalWSController) teardown(sess core.Session) {
	rooms := ctl.Registry.Unbind(sess.SID)
	if ctl.Limits != nil {
		ctl.Limits.Forget(sess.SID)
	}
	ctx := context.Background()
	for _, roomID := range rooms {
		marked, err := ctl.Orch.Disconnect(ctx, sess.UserID, roomID, sess.SID, ctl.AnnounceExpiry)
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.SID)).Str("room_id", string(roomID)).Msg("record disconnect")
			continue
		}
		if !marked {
			continue
		}
		ctl.publish(ctx, roomEvent(roomID, PushParticipantDisconnect, disconnected{
			userInRoom:   userInRoom{RoomID: roomID, UserID: sess.UserID},
			GraceSeconds: int(ctl.Orch.Grace.Period() / time.Second),
		}))
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.SID)).Str("user_id", string(sess.UserID)).Int("rooms", len(rooms)).Msg("connection torn down")
}

// disconnected tells the room how long the user has to come back.
type disconnected struct {
	userInRoom
	GraceSeconds int `json:"grace_seconds"`
}

// AnnounceExpiry broadcasts a departure caused by an expired grace period.
func (ctl *SignalWSController) AnnounceExpiry(dep *orch.DepartureResult) {
	ctl.Announce(context.Background(), departureEvents(dep, userInRoom{RoomID: dep.RoomID, UserID: dep.UserID, Expired: true})...)
}
