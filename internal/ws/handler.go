package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"groupchat-service/internal/auth"
	"groupchat-service/internal/observability"
)

// Handler authenticates websocket handshakes and hands accepted connections
// to the hub.
type Handler struct {
	hub           *Hub
	authenticator *auth.TokenAuthenticator
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, authenticator *auth.TokenAuthenticator) *Handler {
	return &Handler{hub: hub, authenticator: authenticator}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle verifies the handshake credential, upgrades the connection and
// starts the session pumps. A failed verification terminates the connection
// before any session state exists.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("groupchat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	credential := c.GetHeader("Authorization")
	if credential != "" {
		parts := strings.SplitN(credential, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			credential = parts[1]
		}
	} else {
		credential = c.Query("token")
	}

	identity, err := h.authenticator.Verify(credential)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.ID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	s := newSession(h.hub, conn, identity, info)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	s.publishEvent("ws_connect", "")

	go s.writePump()
	go s.readPump()
}
