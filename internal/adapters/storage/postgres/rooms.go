package postgres

import (
	"context"

	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/jackc/pgx/v5"
)

const roomColumns = `id, title, host_id, type, is_active, max_participants, created_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var r domain.Room
	if err := row.Scan(&r.ID, &r.Title, &r.HostID, &r.Type, &r.IsActive, &r.MaxParticipants, &r.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *domain.Room) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (id, title, host_id, type, is_active, max_participants, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, room.ID, room.Title, room.HostID, room.Type, room.IsActive, room.MaxParticipants, room.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
}

func (s *Store) ListActiveRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE is_active ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []domain.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) DeactivateRoom(ctx context.Context, id domain.RoomID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE rooms SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
