package postgres

import (
	"context"
	"time"

	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/jackc/pgx/v5"
)

const participantColumns = `room_id, user_id, role, mic_enabled, socket_id, is_connected, joined_at, disconnected_at`

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var (
		p    domain.Participant
		role string
	)
	if err := row.Scan(&p.RoomID, &p.UserID, &role, &p.MicEnabled, &p.SocketID, &p.IsConnected, &p.JoinedAt, &p.DisconnectedAt); err != nil {
		return nil, mapErr(err)
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	p.Role = r
	return &p, nil
}

// UpsertParticipant converges concurrent joins on the primary key; the
// last writer wins on socket and role fields, joined_at is kept.
func (s *Store) UpsertParticipant(ctx context.Context, p *domain.Participant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO participants (`+participantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET role = EXCLUDED.role,
		              mic_enabled = EXCLUDED.mic_enabled,
		              socket_id = EXCLUDED.socket_id,
		              is_connected = EXCLUDED.is_connected,
		              disconnected_at = EXCLUDED.disconnected_at
	`, p.RoomID, p.UserID, p.Role.String(), p.MicEnabled, p.SocketID, p.IsConnected, p.JoinedAt, p.DisconnectedAt)
	return mapErr(err)
}

func (s *Store) GetParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.Participant, error) {
	return scanParticipant(s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE room_id = $1 AND user_id = $2`, roomID, userID))
}

func (s *Store) ListConnected(ctx context.Context, roomID domain.RoomID) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE room_id = $1 AND is_connected
		ORDER BY joined_at, user_id
	`, roomID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) CountConnected(ctx context.Context, roomID domain.RoomID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM participants WHERE room_id = $1 AND is_connected`, roomID).Scan(&n)
	return n, mapErr(err)
}

func (s *Store) CountConnectedByRoom(ctx context.Context, ids []domain.RoomID) (map[domain.RoomID]int, error) {
	out := make(map[domain.RoomID]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		out[id] = 0
		keys = append(keys, string(id))
	}
	rows, err := s.pool.Query(ctx, `
		SELECT room_id, count(*) FROM participants
		WHERE room_id = ANY($1) AND is_connected
		GROUP BY room_id
	`, keys)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id domain.RoomID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, mapErr(err)
		}
		out[id] = n
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateRole(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.Role, micEnabled bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE participants SET role = $3, mic_enabled = $4
		WHERE room_id = $1 AND user_id = $2
	`, roomID, userID, role.String(), micEnabled)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) MarkDisconnected(ctx context.Context, roomID domain.RoomID, userID domain.UserID, socketID string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE participants SET is_connected = FALSE, disconnected_at = $4
		WHERE room_id = $1 AND user_id = $2 AND socket_id = $3 AND is_connected
	`, roomID, userID, socketID, at)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM participants WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteIfDisconnected(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM participants WHERE room_id = $1 AND user_id = $2 AND NOT is_connected
	`, roomID, userID)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteAllParticipants(ctx context.Context, roomID domain.RoomID) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM participants WHERE room_id = $1`, roomID)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
