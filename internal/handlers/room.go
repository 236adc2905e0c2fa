package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupchat-service/internal/repositories"
	"groupchat-service/internal/telemetry"
)

// RoomHandler manages room-related endpoints.
type RoomHandler struct {
	roomRepo     repositories.RoomRepository
	messageRepo  repositories.MessageRepository
	historyLimit int
	audit        *telemetry.AuditEmitter
}

// NewRoomHandler constructs a RoomHandler.
func NewRoomHandler(roomRepo repositories.RoomRepository, messageRepo repositories.MessageRepository, historyLimit int, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{
		roomRepo:     roomRepo,
		messageRepo:  messageRepo,
		historyLimit: historyLimit,
		audit:        audit,
	}
}

// ListRooms handles GET /api/rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomRepo.ListRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Slug string `json:"slug" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fields"})
		return
	}

	room, err := h.roomRepo.CreateRoom(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, repositories.ErrSlugTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "slug already exists"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	h.emitAudit(c, "INFO", "Room created")
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// JoinRoom handles GET /api/rooms/join/:slug, returning the room and its
// recent history in one response.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	slug := c.Param("slug")

	room, err := h.roomRepo.GetRoomBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	msgs, err := h.messageRepo.ListRecentMessages(c.Request.Context(), slug, h.historyLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room, "messages": msgs})
}

// GetRoomMessages handles GET /api/messages/:room_id.
func (h *RoomHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("room_id")

	msgs, err := h.messageRepo.ListRecentMessages(c.Request.Context(), roomID, h.historyLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *RoomHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
