package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/voicerooms/internal/core"
)

func (ctl *SignalWSController) sendMessage(ctx context.Context, sess core.Session, data json.RawMessage) (*Outcome, error) {
	var p messagePayload
	if err := ctl.decode(data, &p); err != nil {
		return nil, err
	}
	msg, err := ctl.Orch.SendMessage(ctx, sess.UserID, p.RoomID, p.Content)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Ack:    map[string]any{"message": msg},
		Events: []Envelope{roomEvent(p.RoomID, PushReceiveMessage, map[string]any{"message": msg}).except(sess.SID)},
	}, nil
}
