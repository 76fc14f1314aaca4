package domain

import (
	"encoding/json"
	"testing"
)

func TestRoleOrdering(t *testing.T) {
	ordered := []Role{RoleListener, RoleSpeaker, RoleCoHost, RoleHost}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%s should outrank %s", ordered[i], ordered[i-1])
		}
	}
	if RoleHost.Rank() != 4 || RoleListener.Rank() != 1 {
		t.Errorf("unexpected ranks host=%d listener=%d", RoleHost.Rank(), RoleListener.Rank())
	}
}

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role      Role
		publish   bool
		moderates bool
	}{
		{RoleListener, false, false},
		{RoleSpeaker, true, false},
		{RoleCoHost, true, true},
		{RoleHost, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			if got := tt.role.CanPublish(); got != tt.publish {
				t.Errorf("CanPublish = %v, want %v", got, tt.publish)
			}
			if got := tt.role.Moderates(); got != tt.moderates {
				t.Errorf("Moderates = %v, want %v", got, tt.moderates)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"host", RoleHost, false},
		{"co-host", RoleCoHost, false},
		{"cohost", RoleCoHost, false},
		{"speaker", RoleSpeaker, false},
		{"listener", RoleListener, false},
		{"admin", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseRole(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoleJSON(t *testing.T) {
	p := Participant{Role: RoleCoHost}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Role != "co-host" {
		t.Errorf("role = %q, want co-host", out.Role)
	}
}

func TestNewParticipantHostDetection(t *testing.T) {
	room := &Room{ID: "r1", HostID: "alice"}
	host := NewParticipant(room, "alice", "s1", testNow)
	if host.Role != RoleHost || !host.MicEnabled {
		t.Errorf("host participant = %+v", host)
	}
	guest := NewParticipant(room, "bob", "s2", testNow)
	if guest.Role != RoleListener || guest.MicEnabled {
		t.Errorf("guest participant = %+v", guest)
	}
}

func TestReconnectRestoresHost(t *testing.T) {
	room := &Room{ID: "r1", HostID: "alice"}
	p := &Participant{RoomID: "r1", UserID: "alice", Role: RoleListener, SocketID: "old"}
	disc := testNow
	p.DisconnectedAt = &disc
	p.Reconnect(room, "new")
	if p.Role != RoleHost || !p.MicEnabled {
		t.Errorf("host not restored: %+v", p)
	}
	if p.SocketID != "new" || !p.IsConnected || p.DisconnectedAt != nil {
		t.Errorf("binding not refreshed: %+v", p)
	}

	speaker := &Participant{RoomID: "r1", UserID: "bob", Role: RoleSpeaker, MicEnabled: true}
	speaker.Reconnect(room, "s9")
	if speaker.Role != RoleSpeaker || !speaker.MicEnabled {
		t.Errorf("role should be preserved on reconnect: %+v", speaker)
	}
}
