package rtc

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const DefaultGrantTTL = 6 * time.Hour

// VideoGrant is the room scoped permission block understood by
// LiveKit-compatible media servers.
type VideoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

type GrantClaims struct {
	Video VideoGrant `json:"video"`
	jwt.RegisteredClaims
}

type Options struct {
	URL        string
	APIKey     string
	APISecret  string
	TTL        time.Duration
	ICEServers []string
	Now        func() time.Time
}

// TokenIssuer signs media-join grants locally with the transport's API
// secret. It keeps no per-room state.
type TokenIssuer struct {
	url    string
	key    string
	secret []byte
	ttl    time.Duration
	ice    []webrtc.ICEServer
	now    func() time.Time
}

var _ core.GrantIssuer = (*TokenIssuer)(nil)

func NewTokenIssuer(opts Options) (*TokenIssuer, error) {
	if opts.APIKey == "" || opts.APISecret == "" {
		return nil, errors.New("media api key and secret are required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultGrantTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TokenIssuer{
		url:    opts.URL,
		key:    opts.APIKey,
		secret: []byte(opts.APISecret),
		ttl:    opts.TTL,
		ice:    ICEServers(opts.ICEServers),
		now:    opts.Now,
	}, nil
}

// ICEServers turns configured urls into descriptors clients hand to
// their peer connection.
func ICEServers(urls []string) []webrtc.ICEServer {
	if len(urls) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: urls}}
}

func (t *TokenIssuer) IssueGrant(_ context.Context, userID domain.UserID, roomID domain.RoomID, caps core.Capabilities) (*core.MediaGrant, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := GrantClaims{
		Video: VideoGrant{
			Room:         string(roomID),
			RoomJoin:     true,
			CanPublish:   caps.CanPublish,
			CanSubscribe: caps.CanSubscribe,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.key,
			Subject:   string(userID),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("module", "rtc").Str("user_id", string(userID)).Str("room_id", string(roomID)).Bool("publish", caps.CanPublish).Msg("media grant issued")
	return &core.MediaGrant{
		Token:        signed,
		URL:          t.url,
		RoomID:       roomID,
		Identity:     userID,
		CanPublish:   caps.CanPublish,
		CanSubscribe: caps.CanSubscribe,
		ExpiresAt:    exp,
		ICEServers:   t.ice,
	}, nil
}

// Verify parses a grant signed by this issuer. The media server does the
// same check; it is exposed for tests and tooling.
func (t *TokenIssuer) Verify(token string) (*GrantClaims, error) {
	var claims GrantClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
