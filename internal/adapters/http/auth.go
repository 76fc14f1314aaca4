package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	ctxUserID     = "user_id"
	sessionUserID = "user_id"
)

// Authenticator verifies HS256 bearer tokens. The subject claim is the
// caller's user id.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Verify(token string) (domain.UserID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return domain.ParseUserID(claims.Subject)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// identify resolves the caller from, in order, a bearer token, a
// ?token= query parameter and the cookie session.
func (a *Authenticator) identify(c *gin.Context) (domain.UserID, error) {
	token := bearer(c)
	if token == "" {
		token = c.Query("token")
	}
	if token != "" {
		return a.Verify(token)
	}
	if v, ok := sessions.Default(c).Get(sessionUserID).(string); ok {
		return domain.ParseUserID(v)
	}
	return "", errors.New("no credentials")
}

func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := a.identify(c)
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.Unauthorized("authentication required")})
			return
		}
		c.Set(ctxUserID, string(userID))
		c.Next()
	}
}

// Login stores the bearer token's user in the cookie session so browser
// websockets can authenticate without headers.
func (a *Authenticator) Login(c *gin.Context) {
	userID, err := a.Verify(bearer(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.Unauthorized("invalid token")})
		return
	}
	s := sessions.Default(c)
	s.Set(sessionUserID, string(userID))
	if err := s.Save(); err != nil {
		renderError(c, domain.Internal(err, "failed to save session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

func (a *Authenticator) Logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	_ = s.Save()
	c.Status(http.StatusNoContent)
}

func userID(c *gin.Context) domain.UserID {
	return domain.UserID(c.GetString(ctxUserID))
}
