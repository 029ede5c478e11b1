package database

import (
	"time"
)

// User is a chat participant known locally, keyed by its external entity id.
// PushChannel is the channel push events addressed to this user carry.
type User struct {
	ID        int64     `db:"id"`
	EntityID  string    `db:"entity_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	PushChannel string `db:"push_channel"`
}

// Thread is a conversation known locally, keyed by its external entity id.
type Thread struct {
	ID        int64     `db:"id"`
	EntityID  string    `db:"entity_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Message is a chat message. EntityID is unique: a message is created at
// most once, whether it arrives through a push or through normal sync.
type Message struct {
	ID        int64     `db:"id"`
	EntityID  string    `db:"entity_id"`
	ThreadID  int64     `db:"thread_id"`
	SenderID  int64     `db:"sender_id"`
	Date      time.Time `db:"date"`
	Type      int       `db:"type"`
	Text      string    `db:"text"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Session is the single device session: which identity this process is
// bound to and whether it is currently authenticated.
type Session struct {
	UserEntityID  string    `db:"user_entity_id"`
	Authenticated bool      `db:"authenticated"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Delivery records the terminal status of one ingested push event.
type Delivery struct {
	ID         string    `db:"id"`
	Action     string    `db:"action"`
	Channel    string    `db:"channel"`
	EntityID   string    `db:"entity_id"`
	Status     string    `db:"status"`
	ReceivedAt time.Time `db:"received_at"`
}
