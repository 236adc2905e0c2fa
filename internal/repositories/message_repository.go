package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"groupchat-service/internal/models"
)

// MessageRepository defines interactions with the room message log.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID, senderID, senderName, body string) (models.Message, error)
	ListRecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage appends a message to the room's log. The store assigns the
// id and timestamp, which together define the room's message order.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID, senderID, senderName, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (room_id, sender_id, sender_name, body) VALUES ($1, $2, $3, $4) RETURNING id, room_id, sender_id, sender_name, body, created_at`, roomID, senderID, senderName, body).
		Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.SenderName, &msg.Body, &msg.CreatedAt)
	return msg, err
}

// ListRecentMessages returns the most recent messages of a room, oldest
// first, capped at limit.
func (r *MessageRepo) ListRecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	query := `SELECT id, room_id, sender_id, sender_name, body, created_at FROM (
            SELECT id, room_id, sender_id, sender_name, body, created_at
            FROM messages WHERE room_id=$1
            ORDER BY created_at DESC, id DESC LIMIT $2
        ) recent ORDER BY created_at ASC, id ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, roomID, limit)
	return msgs, err
}
