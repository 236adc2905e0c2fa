package ws

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"groupchat-service/internal/auth"
	"groupchat-service/internal/models"
	"groupchat-service/internal/observability"
)

const (
	historyTimeout = 5 * time.Second
	sendBuffer     = 256
)

// ConnInfo carries per-connection metadata for event publishing.
type ConnInfo struct {
	ConnID      string
	UserID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Session is the server-side state of one authenticated websocket
// connection. A session is a member of at most one room at a time; all
// outbound frames flow through a single writer goroutine so each member
// observes broadcasts in pipeline order.
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	identity auth.Identity
	info     ConnInfo

	send      chan models.RoomEvent
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(hub *Hub, conn *websocket.Conn, identity auth.Identity, info ConnInfo) *Session {
	return &Session{
		hub:      hub,
		conn:     conn,
		identity: identity,
		info:     info,
		send:     make(chan models.RoomEvent, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Identity returns the verified identity bound at handshake. Immutable for
// the session's lifetime.
func (s *Session) Identity() auth.Identity {
	return s.identity
}

// enqueue hands an event to the writer. Best-effort: frames to a slow or
// closed session are dropped, historical replay on join covers the gap.
func (s *Session) enqueue(event models.RoomEvent) {
	select {
	case <-s.done:
	case s.send <- event:
	default:
		observability.IncBroadcastDropped()
	}
}

func (s *Session) readPump() {
	defer s.Close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				s.publishEvent("ws_error", err.Error())
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			s.enqueue(models.RoomEvent{Type: models.EventError, Error: "invalid_event"})
			continue
		}
		s.handleEvent(event)
	}
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.send:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error: %v", err)
				s.Close()
				return
			}
		}
	}
}

func (s *Session) handleEvent(event models.ClientEvent) {
	switch event.Type {
	case models.EventJoinRoom:
		s.joinRoom(event.RoomID)
	case models.EventSendMessage:
		s.sendMessage(event)
	}
}

// joinRoom moves the session into roomID, replays the room's recent history
// to this session only, then announces the join to the other members.
func (s *Session) joinRoom(roomID string) {
	if roomID == "" {
		return
	}

	s.hub.Join(roomID, s)
	observability.IncWSEvent("join_room")

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	history, err := s.hub.messages.ListRecentMessages(ctx, roomID, s.hub.historyLimit)
	cancel()
	if err != nil {
		log.Printf("fetch history failed room=%s: %v", roomID, err)
		s.enqueue(models.RoomEvent{Type: models.EventError, Error: "history_failed"})
		return
	}

	s.enqueue(models.RoomEvent{Type: models.EventPreviousMessages, Messages: history})
	s.hub.broadcast(roomID, models.RoomEvent{Type: models.EventUserJoined, User: s.identity.Name}, s)
}

// sendMessage validates and posts a user message into the current room's
// pipeline. Sends outside a room are dropped; the sender is told, but the
// message is not processed.
func (s *Session) sendMessage(event models.ClientEvent) {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}

	room := s.hub.RoomOf(s)
	if room == "" {
		s.enqueue(models.RoomEvent{Type: models.EventError, Error: "not_in_room"})
		return
	}
	if event.RoomID != "" && event.RoomID != room {
		s.enqueue(models.RoomEvent{Type: models.EventError, Error: "room_mismatch"})
		return
	}

	observability.IncWSEvent("send_message")
	s.hub.Post(PostRequest{
		RoomID:          room,
		SenderID:        s.identity.ID,
		SenderName:      s.identity.Name,
		Text:            text,
		Origin:          s,
		EvaluateTrigger: true,
	})
}

// Close tears the session down. Membership is removed before the transport
// closes, so no later broadcast can target this session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.hub.Leave(s)
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		s.publishEvent("ws_disconnect", "")
	})
}

func (s *Session) publishEvent(name, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       name,
			"conn_id":     s.info.ConnID,
			"duration_ms": time.Since(s.info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id": s.info.UserID,
			"ip":      s.info.IP,
		},
	}

	headers := observability.BuildHeaders(s.info.RequestID, s.info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload:   payload,
	}, headers)
}
