package models

import "time"

// Message represents a single chat message in a room. Messages are
// immutable once stored; ordering within a room follows created_at with
// the store-assigned id as tie-break.
type Message struct {
	ID         int64     `db:"id" json:"id"`
	RoomID     string    `db:"room_id" json:"roomId"`
	SenderID   string    `db:"sender_id" json:"senderId"`
	SenderName string    `db:"sender_name" json:"senderName"`
	Body       string    `db:"body" json:"text"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
