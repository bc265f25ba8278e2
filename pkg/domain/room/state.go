package room

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/amirasaad/eventoolkit/pkg/store"
	"github.com/google/uuid"
)

var (
	// ErrAlreadyMember is returned when adding a user who is in the room.
	ErrAlreadyMember = errors.New("user is already a member")
	// ErrNotMember is returned when removing a user, or posting as a user,
	// who is not in the room.
	ErrNotMember = errors.New("user is not a member")
)

// Message is a message kept in the room history.
type Message struct {
	ID       uuid.UUID
	User     string
	Text     string
	PostedAt time.Time
}

// State is the room state. Members are kept sorted.
type State struct {
	Members  []string
	Messages []Message
}

// HasMember reports whether user is in the room.
func (s State) HasMember(user string) bool {
	_, found := slices.BinarySearch(s.Members, user)
	return found
}

// AddMember adds a user to the room.
type AddMember struct{ User string }

// RemoveMember removes a user from the room.
type RemoveMember struct{ User string }

// AppendMessage appends a message to the history.
type AppendMessage struct{ Message Message }

func (AddMember) Kind() string     { return "room/add-member" }
func (RemoveMember) Kind() string  { return "room/remove-member" }
func (AppendMessage) Kind() string { return "room/append-message" }

// Reduce applies a to s. Unknown actions leave the state unchanged.
func Reduce(s State, a store.Action) (State, error) {
	switch a := a.(type) {
	case AddMember:
		i, found := slices.BinarySearch(s.Members, a.User)
		if found {
			return s, fmt.Errorf("%w: %s", ErrAlreadyMember, a.User)
		}
		s.Members = slices.Insert(slices.Clone(s.Members), i, a.User)
		return s, nil
	case RemoveMember:
		i, found := slices.BinarySearch(s.Members, a.User)
		if !found {
			return s, fmt.Errorf("%w: %s", ErrNotMember, a.User)
		}
		s.Members = slices.Delete(slices.Clone(s.Members), i, i+1)
		return s, nil
	case AppendMessage:
		if !s.HasMember(a.Message.User) {
			return s, fmt.Errorf("%w: %s", ErrNotMember, a.Message.User)
		}
		messages := make([]Message, len(s.Messages), len(s.Messages)+1)
		copy(messages, s.Messages)
		s.Messages = append(messages, a.Message)
		return s, nil
	default:
		return s, nil
	}
}
