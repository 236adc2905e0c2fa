package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"groupchat-service/internal/models"
	"groupchat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, name string, slug string) (models.Room, error) {
	args := m.Called(ctx, name, slug)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoomBySlug(ctx context.Context, slug string) (models.Room, error) {
	args := m.Called(ctx, slug)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, roomID, senderID, senderName, body string) (models.Message, error) {
	args := m.Called(ctx, roomID, senderID, senderName, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListRecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type CompleterMock struct {
	mock.Mock
}

func (m *CompleterMock) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
