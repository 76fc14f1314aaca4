package domain

import "fmt"

// Role is the participant privilege level. The zero value is invalid;
// the numeric value is the rank, so roles compare with < and >.
type Role int

const (
	RoleListener Role = iota + 1
	RoleSpeaker
	RoleCoHost
	RoleHost
)

var roleNames = map[Role]string{
	RoleListener: "listener",
	RoleSpeaker:  "speaker",
	RoleCoHost:   "co-host",
	RoleHost:     "host",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) Valid() bool {
	return r >= RoleListener && r <= RoleHost
}

// Rank is the position in the hierarchy host(4) > co-host(3) > speaker(2) > listener(1).
func (r Role) Rank() int { return int(r) }

// CanPublish reports whether the role may send audio.
func (r Role) CanPublish() bool { return r >= RoleSpeaker }

// Moderates reports whether the role may act on other participants.
func (r Role) Moderates() bool { return r >= RoleCoHost }

func ParseRole(s string) (Role, error) {
	switch s {
	case "listener":
		return RoleListener, nil
	case "speaker":
		return RoleSpeaker, nil
	case "co-host", "cohost", "co_host":
		return RoleCoHost, nil
	case "host":
		return RoleHost, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
