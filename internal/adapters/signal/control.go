package signal

import "github.com/dkeye/voicerooms/internal/core"

func (ctl *SignalWSController) handlePing(conn core.SignalConnection) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	_ = ctl.sendJSON(conn, resp)
}
