package room

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	t.Run("members are kept sorted", func(t *testing.T) {
		var s State
		var err error
		for _, user := range []string{"carol", "alice", "bob"} {
			s, err = Reduce(s, AddMember{User: user})
			require.NoError(t, err)
		}

		assert.Equal(t, []string{"alice", "bob", "carol"}, s.Members)
		assert.True(t, s.HasMember("bob"))
		assert.False(t, s.HasMember("dave"))
	})

	t.Run("rejects duplicate members", func(t *testing.T) {
		s := State{Members: []string{"alice"}}

		next, err := Reduce(s, AddMember{User: "alice"})

		assert.ErrorIs(t, err, ErrAlreadyMember)
		assert.Equal(t, s, next)
	})

	t.Run("removes members without touching the previous state", func(t *testing.T) {
		s := State{Members: []string{"alice", "bob"}}

		next, err := Reduce(s, RemoveMember{User: "alice"})

		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, next.Members)
		assert.Equal(t, []string{"alice", "bob"}, s.Members)
	})

	t.Run("rejects removing strangers", func(t *testing.T) {
		_, err := Reduce(State{}, RemoveMember{User: "alice"})

		assert.ErrorIs(t, err, ErrNotMember)
	})

	t.Run("only members may post", func(t *testing.T) {
		s := State{Members: []string{"alice"}}
		msg := Message{ID: uuid.New(), User: "alice", Text: "hi"}

		next, err := Reduce(s, AppendMessage{Message: msg})
		require.NoError(t, err)
		assert.Equal(t, []Message{msg}, next.Messages)
		assert.Empty(t, s.Messages)

		_, err = Reduce(s, AppendMessage{Message: Message{User: "mallory", Text: "hi"}})
		assert.ErrorIs(t, err, ErrNotMember)
	})
}

func TestNewEvents(t *testing.T) {
	joined := NewUserJoined("alice")
	posted := NewMessagePosted("alice", "hello")
	left := NewUserLeft("alice")

	assert.NotEqual(t, uuid.Nil, joined.ID)
	assert.NotEqual(t, joined.ID, posted.ID)
	assert.Equal(t, "hello", posted.Text)
	assert.Equal(t, "alice", left.User)
	assert.False(t, left.Timestamp.IsZero())
}
