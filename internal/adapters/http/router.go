package http

import (
	"context"
	"net/http"

	"github.com/dkeye/voicerooms/internal/adapters/signal"
	"github.com/dkeye/voicerooms/internal/app/orch"
	"github.com/dkeye/voicerooms/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, gw *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteStrictMode})
	r.Use(sessions.Sessions("VoiceSessions", store))

	auth := NewAuthenticator(cfg.Auth.JWTSecret)
	h := &Handlers{Orch: o, Gateway: gw}

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	api := r.Group("/api")
	api.POST("/session", auth.Login)
	api.DELETE("/session", auth.Logout)

	authed := api.Group("", auth.Middleware())
	authed.GET("/rooms", h.listRooms)
	authed.POST("/rooms", h.createRoom)
	authed.GET("/rooms/:id", h.getRoom)
	authed.DELETE("/rooms/:id", h.endRoom)
	authed.GET("/rooms/:id/messages", h.getMessages)

	if gw != nil {
		authed.GET("/ws/signal", func(c *gin.Context) {
			log.Info().Str("module", "adapters.http").Str("user_id", c.GetString(ctxUserID)).Msg("ws signal endpoint hit")
			gw.HandleSignal(ctx, c)
		})
	}

	return r
}
