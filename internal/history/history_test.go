package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/chat-client/internal/protocol"
)

func msg(id, from, to, text string) *protocol.Message {
	return &protocol.Message{ID: id, From: from, To: to, Text: text, Datetime: 1700000000000}
}

func TestAppendAndFindByIDSharesOneRecord(t *testing.T) {
	s := New()
	m := msg("m1", "bob", "alice", "hey")
	s.Append("bob", m)

	found, ok := s.FindByID("m1")
	require.True(t, ok)
	assert.Same(t, m, found)

	// status mutation is visible through both the lookup and the
	// owning sequence
	s.MarkRead("bob", "m1")
	assert.True(t, found.Status.Read)
	assert.True(t, s.Messages("bob")[0].Status.Read)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := New()
	s.Append("bob", msg("m1", "bob", "alice", "one"))
	s.Append("bob", msg("m2", "bob", "alice", "two"))

	s.Remove("bob", "m1")
	require.Len(t, s.Messages("bob"), 1)

	s.Remove("bob", "m1")
	assert.Len(t, s.Messages("bob"), 1)

	s.Remove("nobody", "m2")
	assert.Len(t, s.Messages("bob"), 1)
}

func TestUnreadCountTracksReadFlags(t *testing.T) {
	s := New()
	s.Append("bob", msg("m1", "bob", "alice", "one"))
	s.Append("bob", msg("m2", "bob", "alice", "two"))
	s.Append("bob", msg("m3", "alice", "bob", "mine"))

	assert.Equal(t, 2, s.UnreadCount("bob"))
	assert.Equal(t, []string{"m1", "m2"}, s.UnreadIDs("bob"))

	for _, id := range s.UnreadIDs("bob") {
		s.MarkRead("bob", id)
	}
	assert.Equal(t, 0, s.UnreadCount("bob"))
}

func TestMarkAllDelivered(t *testing.T) {
	s := New()
	s.Append("bob", msg("m1", "alice", "bob", "one"))
	s.Append("bob", msg("m2", "alice", "bob", "two"))
	s.Append("bob", msg("m3", "alice", "bob", "three"))

	ids := s.MarkAllDelivered("bob")
	assert.ElementsMatch(t, []string{"m1", "m2", "m3"}, ids)
	for _, m := range s.Messages("bob") {
		assert.True(t, m.Status.Delivered)
	}

	// already-delivered messages are not reported again
	assert.Empty(t, s.MarkAllDelivered("bob"))
}

func TestEditTextTouchesOnlyTextAndEditedFlag(t *testing.T) {
	s := New()
	s.Append("bob", msg("m1", "alice", "bob", "tpyo"))

	require.True(t, s.EditText("bob", "m1", "typo"))

	m, _ := s.FindIn("bob", "m1")
	assert.Equal(t, "typo", m.Text)
	assert.True(t, m.Status.Edited)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "alice", m.From)
	assert.Equal(t, "bob", m.To)
	assert.Equal(t, int64(1700000000000), m.Datetime)

	assert.False(t, s.EditText("bob", "missing", "x"))
}

func TestEmptyHistoryIsDistinctFromAbsent(t *testing.T) {
	s := New()
	assert.False(t, s.Has("bob"))

	s.Ensure("bob")
	assert.True(t, s.Has("bob"))
	assert.Empty(t, s.Messages("bob"))
}

func TestReplaceInstallsBatch(t *testing.T) {
	s := New()
	s.Append("bob", msg("old", "bob", "alice", "stale"))

	s.Replace("bob", []protocol.Message{
		*msg("m1", "bob", "alice", "one"),
		*msg("m2", "alice", "bob", "two"),
	})

	require.Len(t, s.Messages("bob"), 2)
	assert.Equal(t, "m1", s.Messages("bob")[0].ID)
	_, ok := s.FindByID("old")
	assert.False(t, ok)
}

func TestSentIDs(t *testing.T) {
	s := New()
	s.Append("bob", msg("m1", "alice", "bob", "out"))
	s.Append("bob", msg("m2", "bob", "alice", "in"))

	assert.Equal(t, []string{"m1"}, s.SentIDs("bob"))
}
