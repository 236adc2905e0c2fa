package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"groupchat-service/internal/models"
	"groupchat-service/internal/observability"
	"groupchat-service/internal/repositories"
)

const persistTimeout = 5 * time.Second

// PostRequest is a message entering a room's persist+broadcast pipeline.
type PostRequest struct {
	RoomID     string
	SenderID   string
	SenderName string
	Text       string

	// Origin receives the failed-send signal on persistence errors. Nil for
	// AI-authored posts.
	Origin *Session

	// EvaluateTrigger runs the AI trigger predicate after broadcast. Never
	// set on AI-authored posts, so replies cannot recurse.
	EvaluateTrigger bool
}

// TriggerFunc is invoked with a delivered user message's room and body.
type TriggerFunc func(roomID, body string)

// Hub owns room membership and fan-out. Each room gets a single pipeline
// goroutine that serializes persist+broadcast, so all members observe one
// authoritative message order per room.
type Hub struct {
	messages     repositories.MessageRepository
	historyLimit int
	trigger      TriggerFunc

	mu          sync.RWMutex
	rooms       map[string]map[*Session]struct{}
	sessionRoom map[*Session]string

	pmu       sync.Mutex
	pipelines map[string]*roomPipeline

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type roomPipeline struct {
	roomID string
	queue  chan PostRequest
}

// NewHub creates an empty hub backed by the given message store.
func NewHub(messages repositories.MessageRepository, historyLimit int) *Hub {
	return &Hub{
		messages:     messages,
		historyLimit: historyLimit,
		rooms:        make(map[string]map[*Session]struct{}),
		sessionRoom:  make(map[*Session]string),
		pipelines:    make(map[string]*roomPipeline),
		done:         make(chan struct{}),
	}
}

// SetTrigger installs the AI trigger hook. Must be called before serving.
func (h *Hub) SetTrigger(fn TriggerFunc) {
	h.trigger = fn
}

// Join adds the session to the room's membership set, leaving any previous
// room in the same critical section. Joining the current room again is a
// no-op.
func (h *Hub) Join(roomID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.sessionRoom[s]; ok {
		if prev == roomID {
			return
		}
		h.removeLocked(prev, s)
	}

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Session]struct{})
	}
	h.rooms[roomID][s] = struct{}{}
	h.sessionRoom[s] = roomID
}

// Leave removes the session from whichever room it is in, if any.
func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.sessionRoom[s]; ok {
		h.removeLocked(room, s)
		delete(h.sessionRoom, s)
	}
}

func (h *Hub) removeLocked(roomID string, s *Session) {
	if members, ok := h.rooms[roomID]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RoomOf reports the room the session is currently a member of.
func (h *Hub) RoomOf(s *Session) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessionRoom[s]
}

// Members returns a snapshot of the room's membership set.
func (h *Hub) Members(roomID string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]*Session, 0, len(h.rooms[roomID]))
	for s := range h.rooms[roomID] {
		members = append(members, s)
	}
	return members
}

// broadcast enqueues an event to every member of the room at the instant of
// the call, skipping except. Delivery is best-effort: slow clients drop
// frames rather than stall the room.
func (h *Hub) broadcast(roomID string, event models.RoomEvent, except *Session) {
	for _, s := range h.Members(roomID) {
		if s == except {
			continue
		}
		s.enqueue(event)
	}
}

// Post submits a message to the room's pipeline. Blocks only on the posting
// room's backlog, never on other rooms.
func (h *Hub) Post(req PostRequest) {
	p := h.pipeline(req.RoomID)
	if p == nil {
		return
	}
	select {
	case p.queue <- req:
	case <-h.done:
	}
}

func (h *Hub) pipeline(roomID string) *roomPipeline {
	h.pmu.Lock()
	defer h.pmu.Unlock()

	select {
	case <-h.done:
		return nil
	default:
	}

	p, ok := h.pipelines[roomID]
	if !ok {
		p = &roomPipeline{roomID: roomID, queue: make(chan PostRequest, 64)}
		h.pipelines[roomID] = p
		h.wg.Add(1)
		go h.runPipeline(p)
	}
	return p
}

func (h *Hub) runPipeline(p *roomPipeline) {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case req := <-p.queue:
			h.handlePost(req)
		}
	}
}

func (h *Hub) handlePost(req PostRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	msg, err := h.messages.CreateMessage(ctx, req.RoomID, req.SenderID, req.SenderName, req.Text)
	cancel()
	if err != nil {
		log.Printf("persist message failed room=%s: %v", req.RoomID, err)
		if req.Origin != nil {
			req.Origin.enqueue(models.RoomEvent{Type: models.EventError, Error: "message_failed"})
		}
		return
	}

	sender := "user"
	if req.Origin == nil {
		sender = "ai"
	}
	observability.IncMessage(sender)

	h.broadcast(req.RoomID, models.RoomEvent{Type: models.EventNewMessage, Message: &msg}, nil)

	if req.EvaluateTrigger && h.trigger != nil {
		h.trigger(req.RoomID, req.Text)
	}
}

// Close stops all room pipelines. Queued posts past this point are dropped.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}
