package http

import (
	"net/http"
	"strconv"

	"github.com/dkeye/voicerooms/internal/adapters/signal"
	"github.com/dkeye/voicerooms/internal/app/orch"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Orch    *orch.Orchestrator
	Gateway *signal.SignalWSController
}

type createRoomRequest struct {
	Title string          `json:"title" binding:"required,max=120"`
	Type  domain.RoomType `json:"type" binding:"omitempty,oneof=public private"`
}

func renderError(c *gin.Context, err error) {
	de := domain.AsError(err)
	if de.Code == domain.CodeInternal {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(de.Status, gin.H{"error": de})
}

func (h *Handlers) listRooms(c *gin.Context) {
	rooms, err := h.Orch.ListActiveRooms(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *Handlers) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, domain.Validation("invalid room: "+err.Error()))
		return
	}
	res, err := h.Orch.CreateRoom(c.Request.Context(), userID(c), req.Title, req.Type, "")
	if err != nil {
		renderError(c, err)
		return
	}
	if h.Gateway != nil {
		h.Gateway.Announce(c.Request.Context(), signal.RoomCreatedEvent(res.Room))
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handlers) getRoom(c *gin.Context) {
	state, err := h.Orch.GetRoomState(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handlers) endRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	if _, err := h.Orch.EndRoom(c.Request.Context(), userID(c), roomID); err != nil {
		renderError(c, err)
		return
	}
	if h.Gateway != nil {
		h.Gateway.Announce(c.Request.Context(), h.Gateway.EndedEvents(roomID)...)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) getMessages(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			renderError(c, domain.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}
	page, err := h.Orch.GetMessages(c.Request.Context(), domain.RoomID(c.Param("id")), c.Query("cursor"), limit)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
