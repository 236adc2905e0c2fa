package ws

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"groupchat-service/internal/auth"
	"groupchat-service/internal/mocks"
	"groupchat-service/internal/models"
)

func newTestSession(hub *Hub, identity auth.Identity) *Session {
	return newSession(hub, nil, identity, ConnInfo{ConnectedAt: time.Now()})
}

func recvEvent(t *testing.T, s *Session) models.RoomEvent {
	t.Helper()
	select {
	case event := <-s.send:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.RoomEvent{}
	}
}

func requireNoEvent(t *testing.T, s *Session) {
	t.Helper()
	select {
	case event := <-s.send:
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubJoinAndLeave(t *testing.T) {
	hub := NewHub(new(mocks.MessageRepositoryMock), 1000)
	defer hub.Close()
	s := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})

	hub.Join("general", s)
	require.Equal(t, "general", hub.RoomOf(s))
	require.Len(t, hub.Members("general"), 1)

	hub.Leave(s)
	require.Empty(t, hub.RoomOf(s))
	require.Empty(t, hub.Members("general"))
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := NewHub(new(mocks.MessageRepositoryMock), 1000)
	defer hub.Close()
	s := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})

	hub.Join("general", s)
	hub.Join("general", s)
	require.Len(t, hub.Members("general"), 1)
}

func TestHubJoinMovesBetweenRooms(t *testing.T) {
	hub := NewHub(new(mocks.MessageRepositoryMock), 1000)
	defer hub.Close()
	s := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})

	hub.Join("general", s)
	hub.Join("random", s)

	require.Empty(t, hub.Members("general"))
	require.Len(t, hub.Members("random"), 1)
	require.Equal(t, "random", hub.RoomOf(s))
}

func TestHubLeaveAbsentSessionIsNoop(t *testing.T) {
	hub := NewHub(new(mocks.MessageRepositoryMock), 1000)
	defer hub.Close()
	s := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})

	hub.Leave(s)
	require.Empty(t, hub.RoomOf(s))
}

func TestPostPersistsThenBroadcastsInOrder(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := NewHub(messageRepo, 1000)
	defer hub.Close()

	alice := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})
	bob := newTestSession(hub, auth.Identity{ID: "u2", Name: "Bob"})
	hub.Join("general", alice)
	hub.Join("general", bob)

	messageRepo.On("CreateMessage", mock.Anything, "general", "u1", "Alice", "first").
		Return(models.Message{ID: 1, RoomID: "general", SenderID: "u1", SenderName: "Alice", Body: "first"}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, "general", "u2", "Bob", "second").
		Return(models.Message{ID: 2, RoomID: "general", SenderID: "u2", SenderName: "Bob", Body: "second"}, nil).Once()

	hub.Post(PostRequest{RoomID: "general", SenderID: "u1", SenderName: "Alice", Text: "first", Origin: alice})
	hub.Post(PostRequest{RoomID: "general", SenderID: "u2", SenderName: "Bob", Text: "second", Origin: bob})

	for _, s := range []*Session{alice, bob} {
		first := recvEvent(t, s)
		require.Equal(t, models.EventNewMessage, first.Type)
		require.Equal(t, "first", first.Message.Body)

		second := recvEvent(t, s)
		require.Equal(t, models.EventNewMessage, second.Type)
		require.Equal(t, "second", second.Message.Body)
	}
	messageRepo.AssertExpectations(t)
}

func TestPostPersistFailureSignalsOriginOnly(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := NewHub(messageRepo, 1000)
	defer hub.Close()

	alice := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})
	bob := newTestSession(hub, auth.Identity{ID: "u2", Name: "Bob"})
	hub.Join("general", alice)
	hub.Join("general", bob)

	messageRepo.On("CreateMessage", mock.Anything, "general", "u1", "Alice", "hello").
		Return(nil, errors.New("store unavailable")).Once()

	hub.Post(PostRequest{RoomID: "general", SenderID: "u1", SenderName: "Alice", Text: "hello", Origin: alice})

	event := recvEvent(t, alice)
	require.Equal(t, models.EventError, event.Type)
	require.Equal(t, "message_failed", event.Error)
	requireNoEvent(t, bob)
}

func TestPostEvaluatesTriggerForUserMessagesOnly(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := NewHub(messageRepo, 1000)
	defer hub.Close()

	triggered := make(chan string, 2)
	hub.SetTrigger(func(roomID, body string) {
		triggered <- body
	})

	alice := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})
	hub.Join("general", alice)

	messageRepo.On("CreateMessage", mock.Anything, "general", "u1", "Alice", "@gemini hi").
		Return(models.Message{ID: 1, RoomID: "general", Body: "@gemini hi"}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, "general", "gemini", "Gemini AI", "@gemini hi back").
		Return(models.Message{ID: 2, RoomID: "general", Body: "@gemini hi back"}, nil).Once()

	hub.Post(PostRequest{RoomID: "general", SenderID: "u1", SenderName: "Alice", Text: "@gemini hi", Origin: alice, EvaluateTrigger: true})

	select {
	case body := <-triggered:
		require.Equal(t, "@gemini hi", body)
	case <-time.After(time.Second):
		t.Fatal("trigger was not evaluated")
	}

	// AI posts never re-enter the trigger path.
	hub.Post(PostRequest{RoomID: "general", SenderID: "gemini", SenderName: "Gemini AI", Text: "@gemini hi back"})
	recvEvent(t, alice)
	recvEvent(t, alice)
	select {
	case <-triggered:
		t.Fatal("AI post must not trigger a reply")
	case <-time.After(50 * time.Millisecond):
	}
}
