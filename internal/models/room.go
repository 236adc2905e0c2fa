package models

import "time"

// Room is a named channel partitioning messages and membership. The slug
// doubles as the room id used for membership and message partitioning.
type Room struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
