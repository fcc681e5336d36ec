package stubserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginPinsPasswordAndRejectsDoubleLogin(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Login("alice", "pw"))
	assert.ErrorIs(t, r.Login("alice", "pw"), ErrAlreadyOnline)

	require.NoError(t, r.Logout("alice"))
	assert.ErrorIs(t, r.Login("alice", "wrong"), ErrWrongPassword)
	assert.NoError(t, r.Login("alice", "pw"))
}

func TestUsersSplitByPresence(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Login("alice", "a"))
	require.NoError(t, r.Login("bob", "b"))
	require.NoError(t, r.Logout("bob"))

	online := r.Users(true)
	require.Len(t, online, 1)
	assert.Equal(t, "alice", online[0].Login)

	offline := r.Users(false)
	require.Len(t, offline, 1)
	assert.Equal(t, "bob", offline[0].Login)
}

func TestMessageLifecycle(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Login("alice", "a"))
	require.NoError(t, r.Login("bob", "b"))

	m, err := r.CreateMessage("alice", "bob", "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.True(t, m.Status.Delivered) // bob is online

	_, err = r.CreateMessage("alice", "nobody", "hi")
	assert.ErrorIs(t, err, ErrUnknownUser)

	sender, err := r.MarkRead("bob", m.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", sender)

	_, err = r.MarkRead("alice", m.ID)
	assert.ErrorIs(t, err, ErrNotRecipient)

	recipient, err := r.Edit("alice", m.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "bob", recipient)
	history := r.History("alice", "bob")
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Text)
	assert.True(t, history[0].Status.Edited)

	_, err = r.Delete("bob", m.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = r.Delete("alice", m.ID)
	require.NoError(t, err)
	assert.Empty(t, r.History("alice", "bob"))
}

func TestOfflineSendDeliversOnNextLogin(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Login("alice", "a"))
	require.NoError(t, r.Login("bob", "b"))
	require.NoError(t, r.Logout("bob"))

	m, err := r.CreateMessage("alice", "bob", "while you were out")
	require.NoError(t, err)
	assert.False(t, m.Status.Delivered)

	require.NoError(t, r.Login("bob", "b"))
	history := r.History("bob", "alice")
	require.Len(t, history, 1)
	assert.True(t, history[0].Status.Delivered)
}
