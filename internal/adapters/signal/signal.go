package signal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/voicerooms/internal/adapters/fanout"
	"github.com/dkeye/voicerooms/internal/app"
	"github.com/dkeye/voicerooms/internal/app/orch"
	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const sendBuffer = 64

type Options struct {
	InstanceID string
	Prefix     string
	ReadLimit  int64
	PingPeriod time.Duration
	// AllowedOrigins lists browser origins allowed to open a socket. Empty
	// means same host only; "*" allows any origin.
	AllowedOrigins []string
}

// SignalWSController is the gateway between socket connections and the
// room services. One controller serves every connection of an instance.
type SignalWSController struct {
	Orch         *orch.Orchestrator
	Registry     *app.Registry
	Fanout       core.Fanout
	Limits       *RateLimiter
	Backpressure app.BackpressurePolicy

	opts     Options
	validate *validator.Validate
	handlers map[string]handlerFunc
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, reg *app.Registry, f core.Fanout, limits *RateLimiter, opts Options) *SignalWSController {
	if opts.InstanceID == "" {
		opts.InstanceID = uuid.NewString()
	}
	if opts.Prefix == "" {
		opts.Prefix = fanout.DefaultPrefix
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 32768
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	ctl := &SignalWSController{
		Orch:         o,
		Registry:     reg,
		Fanout:       f,
		Limits:       limits,
		Backpressure: app.SimplePolicy{},
		opts:         opts,
		validate:     v,
	}
	ctl.handlers = ctl.routes()
	ctl.upgrader = websocket.Upgrader{CheckOrigin: ctl.checkOrigin}
	return ctl
}

// Start subscribes the controller to the fanout so broadcasts from any
// instance reach the local connections.
func (ctl *SignalWSController) Start(ctx context.Context) error {
	return ctl.Fanout.Subscribe(ctx, ctl.onFanout)
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// checkOrigin guards the cookie authenticated upgrade against cross-site
// pages. Requests without an Origin header come from non-browser clients.
func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(ctl.opts.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range ctl.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	log.Warn().Str("module", "signal").Str("origin", origin).Msg("ws origin rejected")
	return false
}

// HandleSignal upgrades an authenticated request. The caller's identity
// is read from the "user_id" gin key set by the auth middleware.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	userID, err := domain.ParseUserID(c.GetString("user_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.Unauthorized("authentication required")})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, sendBuffer),
	}
	sess := core.Session{SID: core.SessionID(uuid.NewString()), UserID: userID, Signal: conn}
	log.Info().Str("module", "signal").Str("sid", string(sess.SID)).Str("user_id", string(userID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.BindSignal(sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sess, conn)
}
