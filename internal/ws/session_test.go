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

func TestJoinRoomReplaysHistoryToJoinerOnly(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := NewHub(messageRepo, 1000)
	defer hub.Close()

	alice := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})
	hub.Join("general", alice)

	history := []models.Message{
		{ID: 1, RoomID: "general", SenderID: "u1", SenderName: "Alice", Body: "hello", CreatedAt: time.Now()},
	}
	messageRepo.On("ListRecentMessages", mock.Anything, "general", 1000).Return(history, nil).Once()

	bob := newTestSession(hub, auth.Identity{ID: "u2", Name: "Bob"})
	bob.joinRoom("general")

	replay := recvEvent(t, bob)
	require.Equal(t, models.EventPreviousMessages, replay.Type)
	require.Len(t, replay.Messages, 1)
	require.Equal(t, "hello", replay.Messages[0].Body)

	joined := recvEvent(t, alice)
	require.Equal(t, models.EventUserJoined, joined.Type)
	require.Equal(t, "Bob", joined.User)

	// The joiner does not receive its own join announcement.
	requireNoEvent(t, bob)
	messageRepo.AssertExpectations(t)
}

func TestJoinRoomHistoryFailure(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := NewHub(messageRepo, 1000)
	defer hub.Close()

	messageRepo.On("ListRecentMessages", mock.Anything, "general", 1000).
		Return(nil, errors.New("store unavailable")).Once()

	bob := newTestSession(hub, auth.Identity{ID: "u2", Name: "Bob"})
	bob.joinRoom("general")

	event := recvEvent(t, bob)
	require.Equal(t, models.EventError, event.Type)
	require.Equal(t, "history_failed", event.Error)

	// Membership still moved; the room sees the session.
	require.Equal(t, "general", hub.RoomOf(bob))
}

func TestSendMessageRequiresRoom(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := NewHub(messageRepo, 1000)
	defer hub.Close()

	s := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})
	s.sendMessage(models.ClientEvent{Type: models.EventSendMessage, Text: "hello"})

	event := recvEvent(t, s)
	require.Equal(t, models.EventError, event.Type)
	require.Equal(t, "not_in_room", event.Error)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageIgnoresBlankText(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := NewHub(messageRepo, 1000)
	defer hub.Close()

	s := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})
	hub.Join("general", s)

	s.sendMessage(models.ClientEvent{Type: models.EventSendMessage, Text: "   \n\t "})

	requireNoEvent(t, s)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageRejectsMismatchedRoom(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := NewHub(messageRepo, 1000)
	defer hub.Close()

	s := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})
	hub.Join("general", s)

	s.sendMessage(models.ClientEvent{Type: models.EventSendMessage, RoomID: "random", Text: "hello"})

	event := recvEvent(t, s)
	require.Equal(t, models.EventError, event.Type)
	require.Equal(t, "room_mismatch", event.Error)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCloseRemovesMembership(t *testing.T) {
	hub := NewHub(new(mocks.MessageRepositoryMock), 1000)
	defer hub.Close()

	s := newTestSession(hub, auth.Identity{ID: "u1", Name: "Alice"})
	hub.Join("general", s)

	s.Close()
	require.Empty(t, hub.Members("general"))
	require.Empty(t, hub.RoomOf(s))

	// Close is idempotent.
	s.Close()
}
