package postgres

import (
	"context"
	"time"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, room_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.RoomID, m.SenderID, m.Content, m.CreatedAt)
	return mapErr(err)
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

// ListMessagesBefore pages on (created_at, id) descending.
func (s *Store) ListMessagesBefore(ctx context.Context, roomID domain.RoomID, cursor *core.MessageCursor, limit int) ([]domain.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if cursor == nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, room_id, sender_id, content, created_at FROM messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, roomID, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, room_id, sender_id, content, created_at FROM messages
			WHERE room_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`, roomID, cursor.CreatedAt, cursor.ID, limit)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return collectMessages(rows)
}

func (s *Store) ListMessagesAfter(ctx context.Context, roomID domain.RoomID, since time.Time, limit int) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, sender_id, content, created_at FROM messages
		WHERE room_id = $1 AND created_at > $2
		ORDER BY created_at, id
		LIMIT $3
	`, roomID, since, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectMessages(rows)
}

func (s *Store) Profiles(ctx context.Context, ids []domain.UserID) (map[domain.UserID]domain.Profile, error) {
	out := make(map[domain.UserID]domain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, string(id))
	}
	rows, err := s.pool.Query(ctx, `SELECT user_id, display_name, avatar_url FROM profiles WHERE user_id = ANY($1)`, keys)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, mapErr(err)
		}
		out[p.UserID] = p
	}
	return out, mapErr(rows.Err())
}
