// Package room is a small chat-room domain: the events a room receives and
// the state they are reduced into.
package room

import (
	"time"

	"github.com/google/uuid"
)

// Event names used on the wire.
const (
	UserJoinedName    = "room.user_joined"
	UserLeftName      = "room.user_left"
	MessagePostedName = "room.message_posted"
)

// UserJoined is emitted when a user enters the room.
type UserJoined struct {
	ID        uuid.UUID `json:"id"`
	User      string    `json:"user" validate:"required,max=64"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLeft is emitted when a user leaves the room.
type UserLeft struct {
	ID        uuid.UUID `json:"id"`
	User      string    `json:"user" validate:"required,max=64"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePosted is emitted when a member posts a message.
type MessagePosted struct {
	ID        uuid.UUID `json:"id"`
	User      string    `json:"user" validate:"required,max=64"`
	Text      string    `json:"text" validate:"required,max=4096"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserJoined creates a UserJoined event for user.
func NewUserJoined(user string) *UserJoined {
	return &UserJoined{ID: uuid.New(), User: user, Timestamp: time.Now().UTC()}
}

// NewUserLeft creates a UserLeft event for user.
func NewUserLeft(user string) *UserLeft {
	return &UserLeft{ID: uuid.New(), User: user, Timestamp: time.Now().UTC()}
}

// NewMessagePosted creates a MessagePosted event.
func NewMessagePosted(user, text string) *MessagePosted {
	return &MessagePosted{ID: uuid.New(), User: user, Text: text, Timestamp: time.Now().UTC()}
}
