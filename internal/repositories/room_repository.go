package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"groupchat-service/internal/models"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrSlugTaken    = errors.New("slug already exists")
)

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	CreateRoom(ctx context.Context, name string, slug string) (models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	GetRoomBySlug(ctx context.Context, slug string) (models.Room, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreateRoom creates a room with a unique slug.
func (r *RoomRepo) CreateRoom(ctx context.Context, name string, slug string) (models.Room, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM rooms WHERE slug=$1)`, slug); err != nil {
		return models.Room{}, err
	}
	if exists {
		return models.Room{}, ErrSlugTaken
	}

	var room models.Room
	err := r.db.QueryRowxContext(ctx, `INSERT INTO rooms (name, slug) VALUES ($1, $2) RETURNING id, name, slug, created_at`, name, slug).
		Scan(&room.ID, &room.Name, &room.Slug, &room.CreatedAt)
	return room, err
}

// ListRooms returns all rooms ordered by name.
func (r *RoomRepo) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, `SELECT id, name, slug, created_at FROM rooms ORDER BY name ASC`)
	return rooms, err
}

// GetRoomBySlug fetches a single room by its slug.
func (r *RoomRepo) GetRoomBySlug(ctx context.Context, slug string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT id, name, slug, created_at FROM rooms WHERE slug=$1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}
