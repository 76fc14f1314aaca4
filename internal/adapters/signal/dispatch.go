package signal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Request is one client event.
type Request struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Ack answers exactly one Request.
type Ack struct {
	Type  string        `json:"type"`
	ID    string        `json:"id,omitempty"`
	OK    bool          `json:"ok"`
	Data  any           `json:"data,omitempty"`
	Error *domain.Error `json:"error,omitempty"`
}

// Push is a server initiated event.
type Push struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outcome is what a handler produced: the ack payload and the events to
// publish once the ack is queued.
type Outcome struct {
	Ack    any
	Events []Envelope
}

type handlerFunc func(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error)

const (
	EvCreateRoom   = "create_room"
	EvJoinRoom     = "join_room"
	EvLeaveRoom    = "leave_room"
	EvEndRoom      = "end_room"
	EvRequestMic   = "request_mic"
	EvGrantMic     = "grant_mic"
	EvRevokeMic    = "revoke_mic"
	EvPromoteUser  = "promote_user"
	EvDemoteUser   = "demote_user"
	EvRemoveUser   = "remove_user"
	EvSendMessage  = "send_message"
	EvRestoreState = "restore_room_state"
	EvPing         = "ping"
)

func (ctl *SignalWSController) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		EvCreateRoom:   ctl.createRoom,
		EvJoinRoom:     ctl.joinRoom,
		EvLeaveRoom:    ctl.leaveRoom,
		EvEndRoom:      ctl.endRoom,
		EvRestoreState: ctl.restoreRoomState,
		EvRequestMic:   ctl.requestMic,
		EvGrantMic:     ctl.grantMic,
		EvRevokeMic:    ctl.revokeMic,
		EvPromoteUser:  ctl.promoteUser,
		EvDemoteUser:   ctl.demoteUser,
		EvRemoveUser:   ctl.removeUser,
		EvSendMessage:  ctl.sendMessage,
	}
}

// dispatch runs one frame through rate limiting, the handler and the
// ack. Broadcasts go out after the ack.
func (ctl *SignalWSController) dispatch(ctx context.Context, sess core.Session, raw []byte) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil || req.Type == "" {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.SID)).Msg("bad json")
		ctl.ack(sess, req.ID, nil, domain.Validation("malformed event"))
		return
	}
	if req.Type == EvPing {
		ctl.handlePing(sess.Signal)
		return
	}
	h, ok := ctl.handlers[req.Type]
	if !ok {
		log.Warn().Str("module", "signal").Str("type", req.Type).Msg("unknown signal")
		ctl.ack(sess, req.ID, nil, domain.Validation("unknown event "+req.Type))
		return
	}
	if ctl.Limits != nil && !ctl.Limits.Allow(sess.SID, req.Type) {
		log.Debug().Str("module", "signal").Str("sid", string(sess.SID)).Str("type", req.Type).Msg("rate limited")
		ctl.ack(sess, req.ID, nil, domain.RateLimited("too many events, slow down"))
		return
	}

	out, err := h(ctx, sess, req.Data)
	if err != nil {
		de := domain.AsError(err)
		if de.Code == domain.CodeInternal {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.SID)).Str("type", req.Type).Msg("handler failed")
		}
		ctl.ack(sess, req.ID, nil, de)
		return
	}
	var data any = struct{}{}
	if out != nil && out.Ack != nil {
		data = out.Ack
	}
	ctl.ack(sess, req.ID, data, nil)
	if out != nil {
		for _, ev := range out.Events {
			ctl.publish(ctx, ev)
		}
	}
}

func (ctl *SignalWSController) ack(sess core.Session, id string, data any, err *domain.Error) {
	a := Ack{Type: "ack", ID: id, OK: err == nil, Data: data, Error: err}
	if sendErr := ctl.sendJSON(sess.Signal, a); sendErr != nil {
		ctl.onSendError(sess.SID, sess.Signal, sendErr)
	}
}

// decode unmarshals and validates a payload before any service call.
func (ctl *SignalWSController) decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.Validation("malformed payload")
	}
	if err := ctl.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return domain.Validation("invalid payload: " + strings.Join(fields, ", "))
		}
		return domain.Validation("invalid payload")
	}
	return nil
}
