package orch

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
)

// EncodeCursor packs a keyset position into an opaque token.
func EncodeCursor(at time.Time, id string) string {
	raw := at.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor accepts tokens from EncodeCursor and bare RFC3339
// timestamps. An empty cursor means the first page.
func DecodeCursor(s string) (*core.MessageCursor, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &core.MessageCursor{CreatedAt: t.UTC()}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.Validation("malformed cursor")
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, domain.Validation("malformed cursor")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, domain.Validation("malformed cursor")
	}
	return &core.MessageCursor{CreatedAt: t.UTC(), ID: id}, nil
}
