package orch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/voicerooms/internal/adapters/storage/memory"
	"github.com/dkeye/voicerooms/internal/app"
	"github.com/dkeye/voicerooms/internal/clock"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
)

var epoch = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fakeGrants struct{ issued int }

func (f *fakeGrants) IssueGrant(_ context.Context, userID domain.UserID, roomID domain.RoomID, caps core.Capabilities) (*core.MediaGrant, error) {
	f.issued++
	return &core.MediaGrant{
		Token:        fmt.Sprintf("tok-%d", f.issued),
		RoomID:       roomID,
		Identity:     userID,
		CanPublish:   caps.CanPublish,
		CanSubscribe: caps.CanSubscribe,
	}, nil
}

type harness struct {
	o     *Orchestrator
	store *memory.Store
	clock *clock.FakeClock
}

func newHarness(t *testing.T, maxParticipants int) *harness {
	t.Helper()
	c := clock.Fake(epoch)
	store := memory.New()
	grace := app.NewGraceManager(c, 30*time.Second)
	o := New(store, &fakeGrants{}, grace, c, maxParticipants)
	n := 0
	o.newRoomID = func() domain.RoomID {
		n++
		return domain.RoomID(fmt.Sprintf("room-%d", n))
	}
	return &harness{o: o, store: store, clock: c}
}

func (h *harness) create(t *testing.T, host domain.UserID) *CreateResult {
	t.Helper()
	res, err := h.o.CreateRoom(context.Background(), host, "Launch Day", domain.RoomPublic, "sock-"+core.SessionID(host))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return res
}

func (h *harness) join(t *testing.T, user domain.UserID, room domain.RoomID, sid core.SessionID) *JoinResult {
	t.Helper()
	res, err := h.o.JoinRoom(context.Background(), user, room, sid)
	if err != nil {
		t.Fatalf("JoinRoom(%s): %v", user, err)
	}
	return res
}

func TestLaunchDayScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	created := h.create(t, "host")
	room := created.Room.ID

	if created.Participant.Role != domain.RoleHost || !created.Participant.MicEnabled {
		t.Fatalf("host participant = %+v", created.Participant)
	}
	if !created.Grant.CanPublish || !created.Grant.CanSubscribe {
		t.Fatalf("host grant = %+v", created.Grant)
	}

	joined := h.join(t, "freelancer-a", room, "sock-a")
	if joined.Participant.Role != domain.RoleListener || joined.Participant.MicEnabled {
		t.Fatalf("listener = %+v", joined.Participant)
	}
	if joined.Grant.CanPublish {
		t.Fatal("listener grant must be subscribe-only")
	}
	if len(joined.Participants) != 2 {
		t.Fatalf("participants = %d", len(joined.Participants))
	}

	granted, err := h.o.GrantMic(ctx, "host", "freelancer-a", room)
	if err != nil {
		t.Fatalf("GrantMic: %v", err)
	}
	if granted.Participant.Role != domain.RoleSpeaker || !granted.Participant.MicEnabled || !granted.Grant.CanPublish {
		t.Fatalf("after grant = %+v / %+v", granted.Participant, granted.Grant)
	}

	revoked, err := h.o.RevokeMic(ctx, "host", "freelancer-a", room)
	if err != nil {
		t.Fatalf("RevokeMic: %v", err)
	}
	if revoked.Participant.Role != domain.RoleListener || revoked.Participant.MicEnabled || revoked.Grant.CanPublish {
		t.Fatalf("after revoke = %+v", revoked.Participant)
	}
	stored, _ := h.store.GetParticipant(ctx, room, "freelancer-a")
	if stored.Role != domain.RoleListener || stored.MicEnabled {
		t.Errorf("stored row = %+v", stored)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	h := newHarness(t, 10)
	tests := []struct {
		name  string
		title string
		typ   domain.RoomType
	}{
		{"empty title", "  ", domain.RoomPublic},
		{"bad type", "ok", domain.RoomType("secret")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.o.CreateRoom(context.Background(), "host", tt.title, tt.typ, "")
			if !domain.IsCode(err, domain.CodeValidation) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestRejoinUpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "s1")
	res := h.join(t, "a", room, "s2")
	if !res.Reconnected {
		t.Error("second join should be a reconnect")
	}
	n, _ := h.store.CountConnected(ctx, room)
	if n != 2 {
		t.Fatalf("connected = %d, want 2", n)
	}
	p, _ := h.store.GetParticipant(ctx, room, "a")
	if p.SocketID != "s2" {
		t.Errorf("socket = %s", p.SocketID)
	}
}

func TestJoinRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")

	if _, err := h.o.JoinRoom(ctx, "b", room, "sb"); !domain.IsCode(err, domain.CodeRoomFull) {
		t.Fatalf("full room: err = %v", err)
	}
	// an already connected member may rebind even when the room is full
	if _, err := h.o.JoinRoom(ctx, "a", room, "sa2"); err != nil {
		t.Fatalf("rebind in full room: %v", err)
	}
	if _, err := h.o.JoinRoom(ctx, "b", "missing", "sb"); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("missing room: err = %v", err)
	}
	if _, err := h.o.EndRoom(ctx, "host", room); err != nil {
		t.Fatal(err)
	}
	if _, err := h.o.JoinRoom(ctx, "b", room, "sb"); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("ended room: err = %v", err)
	}
}

func TestHostRestoredOnReconnect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	// simulate a host row left demoted by an abnormal path
	if err := h.store.UpdateRole(ctx, room, "host", domain.RoleListener, false); err != nil {
		t.Fatal(err)
	}
	res := h.join(t, "host", room, "s-new")
	if res.Participant.Role != domain.RoleHost || !res.Participant.MicEnabled || !res.Grant.CanPublish {
		t.Errorf("host after reconnect = %+v", res.Participant)
	}
}

func TestEndRoom(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")

	if _, err := h.o.EndRoom(ctx, "a", room); !domain.IsCode(err, domain.CodeForbidden) {
		t.Fatalf("non-host end: err = %v", err)
	}
	ended, err := h.o.EndRoom(ctx, "host", room)
	if err != nil {
		t.Fatalf("EndRoom: %v", err)
	}
	if ended.IsActive {
		t.Error("room should be inactive")
	}
	n, _ := h.store.DeleteAllParticipants(ctx, room)
	if n != 0 {
		t.Errorf("%d rows left after end", n)
	}
	rooms, _ := h.o.ListActiveRooms(ctx)
	if len(rooms) != 0 {
		t.Errorf("active rooms = %d", len(rooms))
	}
}

func TestLastLeaveDestroysRoom(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")

	dep, err := h.o.LeaveRoom(ctx, "a", room)
	if err != nil || dep.RoomEnded || dep.Count != 1 {
		t.Fatalf("first leave = %+v, %v", dep, err)
	}
	dep, err = h.o.LeaveRoom(ctx, "host", room)
	if err != nil || !dep.RoomEnded || dep.Count != 0 {
		t.Fatalf("last leave = %+v, %v", dep, err)
	}
	r, _ := h.store.GetRoom(ctx, room)
	if r.IsActive {
		t.Error("room should be inactive")
	}
	if _, err := h.o.LeaveRoom(ctx, "a", room); !domain.IsCode(err, domain.CodeNotFound) {
		t.Errorf("leave twice: err = %v", err)
	}
}

func TestRoleOpsRequireConnectedParties(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")
	if _, err := h.o.Disconnect(ctx, "a", room, "sa", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := h.o.GrantMic(ctx, "host", "a", room); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("disconnected target: err = %v", err)
	}
	if _, err := h.o.GrantMic(ctx, "ghost", "host", room); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("unknown actor: err = %v", err)
	}
}

func TestPromoteCoHostRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "co", room, "s1")
	h.join(t, "b", room, "s2")

	if _, err := h.o.Promote(ctx, "host", "co", room, domain.RoleCoHost); err != nil {
		t.Fatalf("host -> co-host: %v", err)
	}
	if _, err := h.o.Promote(ctx, "co", "b", room, domain.RoleCoHost); !domain.IsCode(err, domain.CodeForbidden) {
		t.Fatalf("co-host creating co-host: err = %v", err)
	}
	res, err := h.o.Promote(ctx, "co", "b", room, domain.RoleSpeaker)
	if err != nil || res.PreviousRole != domain.RoleListener || res.Participant.Role != domain.RoleSpeaker {
		t.Fatalf("co-host -> speaker = %+v, %v", res, err)
	}
	if _, err := h.o.Demote(ctx, "co", "host", room); !domain.IsCode(err, domain.CodeForbidden) {
		t.Fatalf("co-host demoting host: err = %v", err)
	}
	p, _ := h.store.GetParticipant(ctx, room, "host")
	if p.Role != domain.RoleHost {
		t.Error("failed demote must not mutate")
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")
	h.join(t, "co", room, "sc")
	if _, err := h.o.Promote(ctx, "host", "co", room, domain.RoleCoHost); err != nil {
		t.Fatal(err)
	}

	if _, err := h.o.Remove(ctx, "co", "a", room); !domain.IsCode(err, domain.CodeForbidden) {
		t.Fatalf("co-host remove: err = %v", err)
	}
	if _, err := h.o.Remove(ctx, "host", "host", room); !domain.IsCode(err, domain.CodeForbidden) {
		t.Fatalf("host self remove: err = %v", err)
	}
	res, err := h.o.Remove(ctx, "host", "a", room)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if res.Departure.Count != 2 || res.Departure.RoomEnded {
		t.Errorf("departure = %+v", res.Departure)
	}
	if _, err := h.store.GetParticipant(ctx, room, "a"); err == nil {
		t.Error("removed row should be gone")
	}
}

func TestGraceReconnectWithinWindow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")
	if _, err := h.o.GrantMic(ctx, "host", "a", room); err != nil {
		t.Fatal(err)
	}

	expired := 0
	marked, err := h.o.Disconnect(ctx, "a", room, "sa", func(*DepartureResult) { expired++ })
	if err != nil || !marked {
		t.Fatalf("Disconnect = %v, %v", marked, err)
	}
	if !h.o.Grace.Pending(app.GraceKey{UserID: "a", RoomID: room}) {
		t.Fatal("grace timer should be pending")
	}

	h.clock.Advance(10 * time.Second)
	res := h.join(t, "a", room, "sa2")
	if !res.Reconnected || res.Participant.Role != domain.RoleSpeaker {
		t.Fatalf("reconnect = %+v", res.Participant)
	}
	h.clock.Advance(time.Minute)
	if expired != 0 {
		t.Fatal("reconnect must suppress removal")
	}
	n, _ := h.store.CountConnected(ctx, room)
	if n != 2 {
		t.Errorf("connected = %d", n)
	}
}

func TestGraceExpiryDestroysEmptyRoom(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID

	var got *DepartureResult
	if _, err := h.o.Disconnect(ctx, "host", room, "sock-host", func(d *DepartureResult) { got = d }); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(30 * time.Second)
	if got == nil || !got.RoomEnded || got.Count != 0 {
		t.Fatalf("departure = %+v", got)
	}
	r, _ := h.store.GetRoom(ctx, room)
	if r.IsActive {
		t.Error("room should be inactive")
	}
	if n, _ := h.store.DeleteAllParticipants(ctx, room); n != 0 {
		t.Errorf("%d rows left", n)
	}
}

func TestStaleSocketDisconnectIgnored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "old")
	h.join(t, "a", room, "new")

	marked, err := h.o.Disconnect(ctx, "a", room, "old", nil)
	if err != nil || marked {
		t.Fatalf("stale disconnect = %v, %v", marked, err)
	}
	if h.o.Grace.Len() != 0 {
		t.Error("no timer for a stale socket")
	}
}

func TestExpiryKeepsRowReconnectedElsewhere(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")
	if _, err := h.o.Disconnect(ctx, "a", room, "sa", nil); err != nil {
		t.Fatal(err)
	}
	// another instance rebinds the row without touching this timer
	p, _ := h.store.GetParticipant(ctx, room, "a")
	p.Reconnect(&domain.Room{ID: room, HostID: "host"}, "remote")
	_ = h.store.UpsertParticipant(ctx, p)

	h.clock.Advance(30 * time.Second)
	if _, err := h.store.GetParticipant(ctx, room, "a"); err != nil {
		t.Fatalf("row deleted despite reconnect: %v", err)
	}
}

func TestChatAndPagination(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")

	if _, err := h.o.SendMessage(ctx, "a", room, "   "); !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("empty: err = %v", err)
	}
	long := make([]rune, domain.MaxMessageLen+1)
	for i := range long {
		long[i] = 'é'
	}
	if _, err := h.o.SendMessage(ctx, "a", room, string(long)); !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("too long: err = %v", err)
	}
	if _, err := h.o.SendMessage(ctx, "stranger", room, "hi"); !domain.IsCode(err, domain.CodeForbidden) {
		t.Fatalf("stranger: err = %v", err)
	}

	const total = 7
	for i := 0; i < total; i++ {
		if _, err := h.o.SendMessage(ctx, "a", room, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
		if i%2 == 1 {
			h.clock.Advance(time.Millisecond)
		}
	}

	seen := map[string]bool{}
	var last time.Time
	cursor := ""
	pages := 0
	for {
		page, err := h.o.GetMessages(ctx, room, cursor, 3)
		if err != nil {
			t.Fatalf("GetMessages: %v", err)
		}
		pages++
		for _, m := range page.Messages {
			if seen[m.ID] {
				t.Fatalf("message %s returned twice", m.ID)
			}
			if !last.IsZero() && m.CreatedAt.After(last) {
				t.Fatalf("order broken at %s", m.ID)
			}
			seen[m.ID] = true
			last = m.CreatedAt
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	if len(seen) != total || pages != 3 {
		t.Errorf("seen %d messages over %d pages", len(seen), pages)
	}

	since, err := h.o.GetMessagesSince(ctx, room, epoch)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(since); i++ {
		if since[i].CreatedAt.Before(since[i-1].CreatedAt) {
			t.Fatal("backfill must be ascending")
		}
	}
	if _, err := h.o.GetMessages(ctx, room, "%%%", 3); !domain.IsCode(err, domain.CodeValidation) {
		t.Errorf("bad cursor: err = %v", err)
	}
}

func TestRestoreRoomState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")
	if _, err := h.o.SendMessage(ctx, "host", room, "before"); err != nil {
		t.Fatal(err)
	}
	mark := h.clock.Now()
	h.clock.Advance(time.Second)
	if _, err := h.o.Disconnect(ctx, "a", room, "sa", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := h.o.SendMessage(ctx, "host", room, "missed"); err != nil {
		t.Fatal(err)
	}

	res, err := h.o.RestoreRoomState(ctx, "a", room, "sa2", &mark)
	if err != nil {
		t.Fatalf("RestoreRoomState: %v", err)
	}
	if res.Participant == nil || res.Grant == nil || !res.Participant.IsConnected {
		t.Fatalf("restore = %+v", res)
	}
	if len(res.MissedMessages) != 1 || res.MissedMessages[0].Content != "missed" {
		t.Errorf("missed = %+v", res.MissedMessages)
	}
	if h.o.Grace.Len() != 0 {
		t.Error("restore should cancel the grace timer")
	}

	spectator, err := h.o.RestoreRoomState(ctx, "nobody", room, "sx", nil)
	if err != nil || spectator.Grant != nil || len(spectator.MissedMessages) != 2 {
		t.Errorf("unseated restore = %+v, %v", spectator, err)
	}
}

func TestRestoreRespectsCapacity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")
	if _, err := h.o.Disconnect(ctx, "a", room, "sa", nil); err != nil {
		t.Fatal(err)
	}
	h.join(t, "b", room, "sb")

	tests := []struct {
		name string
		call func() error
	}{
		{"join_room", func() error {
			_, err := h.o.JoinRoom(ctx, "a", room, "sa2")
			return err
		}},
		{"restore_room_state", func() error {
			_, err := h.o.RestoreRoomState(ctx, "a", room, "sa2", nil)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !domain.IsCode(err, domain.CodeRoomFull) {
				t.Fatalf("err = %v, want room_full", err)
			}
			if n, _ := h.store.CountConnected(ctx, room); n != 2 {
				t.Errorf("connected = %d, want 2", n)
			}
			if !h.o.Grace.Pending(app.GraceKey{UserID: "a", RoomID: room}) {
				t.Error("rejected reconnect must leave the grace timer running")
			}
		})
	}

	// a connected member switching sockets keeps its seat
	if _, err := h.o.RestoreRoomState(ctx, "b", room, "sb2", nil); err != nil {
		t.Errorf("restore of a connected row in a full room: %v", err)
	}
}

func TestRoomStateProfiles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.join(t, "a", room, "sa")
	h.store.SetProfile(domain.Profile{UserID: "host", DisplayName: "Dana Host", AvatarURL: "https://cdn.example/dana.png"})

	state, err := h.o.GetRoomState(ctx, room)
	if err != nil {
		t.Fatalf("GetRoomState: %v", err)
	}
	got := map[domain.UserID]domain.ParticipantView{}
	for _, v := range state.Participants {
		got[v.UserID] = v
	}
	tests := []struct {
		user   domain.UserID
		name   string
		avatar string
	}{
		{"host", "Dana Host", "https://cdn.example/dana.png"},
		{"a", "a", ""},
	}
	for _, tt := range tests {
		v, ok := got[tt.user]
		if !ok {
			t.Fatalf("%s missing from room state", tt.user)
		}
		if v.DisplayName != tt.name || v.AvatarURL != tt.avatar {
			t.Errorf("%s view = %q %q, want %q %q", tt.user, v.DisplayName, v.AvatarURL, tt.name, tt.avatar)
		}
	}
}

func TestBackfillIsCapped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	const total = domain.MaxBackfillBatch + 5
	for i := 0; i < total; i++ {
		if _, err := h.o.SendMessage(ctx, "host", room, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
		h.clock.Advance(time.Millisecond)
	}

	rows, err := h.o.GetMessagesSince(ctx, room, epoch.Add(-time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != domain.MaxBackfillBatch {
		t.Fatalf("backfill = %d rows, want %d", len(rows), domain.MaxBackfillBatch)
	}
	for i, m := range rows {
		if want := fmt.Sprintf("m%d", i); m.Content != want {
			t.Fatalf("row %d = %s, want %s", i, m.Content, want)
		}
	}
}

func TestMessageTimestampsKeepMicroseconds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	room := h.create(t, "host").Room.ID
	h.clock.Advance(1500 * time.Nanosecond)

	msg, err := h.o.SendMessage(ctx, "host", room, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg.CreatedAt.Nanosecond()%1000 != 0 {
		t.Errorf("created_at %v has sub-microsecond precision", msg.CreatedAt)
	}
	// echoing the acked timestamp back must not replay the message
	since, err := h.o.GetMessagesSince(ctx, room, msg.CreatedAt)
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 0 {
		t.Errorf("backfill after own message = %+v", since)
	}
}

func TestDetachedHostCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("host never connects", func(t *testing.T) {
		h := newHarness(t, 10)
		var got *DepartureResult
		h.o.OnDetachedExpiry = func(d *DepartureResult) { got = d }
		res, err := h.o.CreateRoom(ctx, "host", "Launch Day", domain.RoomPublic, "")
		if err != nil {
			t.Fatal(err)
		}
		room := res.Room.ID
		if res.Participant.IsConnected || res.Participant.Role != domain.RoleHost {
			t.Fatalf("seated host = %+v", res.Participant)
		}
		if n, _ := h.store.CountConnected(ctx, room); n != 0 {
			t.Errorf("connected = %d, want 0", n)
		}
		h.clock.Advance(30 * time.Second)
		if got == nil || !got.RoomEnded {
			t.Fatalf("departure = %+v", got)
		}
		if r, _ := h.store.GetRoom(ctx, room); r.IsActive {
			t.Error("abandoned room should be inactive")
		}
	})

	t.Run("host joins within grace", func(t *testing.T) {
		h := newHarness(t, 10)
		res, err := h.o.CreateRoom(ctx, "host", "Launch Day", domain.RoomPublic, "")
		if err != nil {
			t.Fatal(err)
		}
		room := res.Room.ID
		h.clock.Advance(10 * time.Second)
		joined := h.join(t, "host", room, "sock-host")
		if !joined.Reconnected || joined.Participant.Role != domain.RoleHost {
			t.Fatalf("join = %+v", joined.Participant)
		}
		h.clock.Advance(time.Minute)
		if r, _ := h.store.GetRoom(ctx, room); !r.IsActive {
			t.Error("room should stay active")
		}
		if n, _ := h.store.CountConnected(ctx, room); n != 1 {
			t.Errorf("connected = %d, want 1", n)
		}
	})
}
