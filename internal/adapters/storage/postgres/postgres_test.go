package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "rooms_pkey"}, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapErr(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("mapErr = %v, want %v", got, tt.want)
			}
		})
	}
	other := &pgconn.PgError{Code: "23503"}
	if got := mapErr(other); errors.Is(got, domain.ErrConflict) || errors.Is(got, domain.ErrNotFound) {
		t.Errorf("foreign key error mapped to %v", got)
	}
	if mapErr(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"rooms", "participants", "messages", "profiles"} {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema missing %s", table)
		}
	}
	if !strings.Contains(schema, "PRIMARY KEY (room_id, user_id)") {
		t.Error("participants must be keyed by (room_id, user_id)")
	}
}

// TestStoreAgainstDatabase runs only when VOICE_TEST_DATABASE_URL points
// at a disposable database.
func TestStoreAgainstDatabase(t *testing.T) {
	dsn := os.Getenv("VOICE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("VOICE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(ctx, pool); err != nil {
		t.Fatal(err)
	}
	s := New(pool)
	defer s.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	room := &domain.Room{ID: domain.RoomID(fmt.Sprintf("it-%d", now.UnixNano())), Title: "it", HostID: "h", Type: domain.RoomPublic, IsActive: true, MaxParticipants: 5, CreatedAt: now}
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateRoom(ctx, room); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate room: err = %v", err)
	}

	for _, sid := range []string{"s1", "s2"} {
		if err := s.UpsertParticipant(ctx, domain.NewParticipant(room, "u", sid, now)); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := s.CountConnected(ctx, room.ID); n != 1 {
		t.Fatalf("count = %d", n)
	}
	if ok, _ := s.MarkDisconnected(ctx, room.ID, "u", "s1", now); ok {
		t.Fatal("stale socket marked the row")
	}
	if ok, _ := s.MarkDisconnected(ctx, room.ID, "u", "s2", now); !ok {
		t.Fatal("owner socket did not mark the row")
	}
	if ok, _ := s.DeleteIfDisconnected(ctx, room.ID, "u"); !ok {
		t.Fatal("disconnected row not deleted")
	}
	if _, err := s.GetParticipant(ctx, room.ID, "u"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if ok, _ := s.DeactivateRoom(ctx, room.ID); !ok {
		t.Fatal("deactivate")
	}
}
