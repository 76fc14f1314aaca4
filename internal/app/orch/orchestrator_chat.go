package orch

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// SendMessage persists a chat line from a connected participant.
func (o *Orchestrator) SendMessage(ctx context.Context, userID domain.UserID, roomID domain.RoomID, content string) (*domain.Message, error) {
	if err := domain.ValidateContent(content); err != nil {
		return nil, err
	}
	if _, err := o.activeRoom(ctx, roomID); err != nil {
		return nil, err
	}
	p, err := o.Store.GetParticipant(ctx, roomID, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Wrap(err, "failed to load participant")
	}
	if p == nil || !p.IsConnected {
		return nil, domain.Forbidden("only connected participants can chat")
	}
	// stored timestamps keep microseconds; the ack must carry the same value
	now := o.now().Truncate(time.Microsecond)
	msg := &domain.Message{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		RoomID:    roomID,
		SenderID:  userID,
		Content:   content,
		CreatedAt: now,
	}
	if err := o.Store.CreateMessage(ctx, msg); err != nil {
		return nil, domain.Wrap(err, "failed to send message")
	}
	log.Debug().Str("module", "orch").Str("room_id", string(roomID)).Str("user_id", string(userID)).Str("message_id", msg.ID).Msg("message stored")
	return msg, nil
}

type MessagePage struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// GetMessages returns up to limit messages newest first, strictly older
// than cursor. NextCursor is set only when more rows exist.
func (o *Orchestrator) GetMessages(ctx context.Context, roomID domain.RoomID, cursor string, limit int) (*MessagePage, error) {
	if _, err := o.Store.GetRoom(ctx, roomID); err != nil {
		return nil, domain.Wrap(err, "room not found")
	}
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = domain.ClampPageSize(limit)
	rows, err := o.Store.ListMessagesBefore(ctx, roomID, cur, limit+1)
	if err != nil {
		return nil, domain.Wrap(err, "failed to load messages")
	}
	page := &MessagePage{Messages: rows}
	if len(rows) > limit {
		page.Messages = rows[:limit]
		last := page.Messages[limit-1]
		page.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	if page.Messages == nil {
		page.Messages = []domain.Message{}
	}
	return page, nil
}

// GetMessagesSince backfills a reconnecting client in chronological order.
func (o *Orchestrator) GetMessagesSince(ctx context.Context, roomID domain.RoomID, since time.Time) ([]domain.Message, error) {
	rows, err := o.Store.ListMessagesAfter(ctx, roomID, since, domain.MaxBackfillBatch)
	if err != nil {
		return nil, domain.Wrap(err, "failed to load messages")
	}
	if rows == nil {
		rows = []domain.Message{}
	}
	return rows, nil
}

// recentMessages is the latest page in chronological order.
func (o *Orchestrator) recentMessages(ctx context.Context, roomID domain.RoomID) ([]domain.Message, error) {
	rows, err := o.Store.ListMessagesBefore(ctx, roomID, nil, domain.DefaultPageSize)
	if err != nil {
		return nil, domain.Wrap(err, "failed to load messages")
	}
	out := slices.Clone(rows)
	slices.Reverse(out)
	if out == nil {
		out = []domain.Message{}
	}
	return out, nil
}
