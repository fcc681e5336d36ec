package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/chat-client/internal/protocol"
)

func TestUpsertAddsThenOnlyUpdatesPresence(t *testing.T) {
	s := New()
	s.Upsert(protocol.UserItem{Login: "bob", Online: true})
	require.Equal(t, 1, s.Len())

	s.Upsert(protocol.UserItem{Login: "bob", Online: false})
	assert.Equal(t, 1, s.Len())

	u, ok := s.FindByLogin("bob")
	require.True(t, ok)
	assert.False(t, u.Online)
}

func TestAddBatchSkipsCurrentUser(t *testing.T) {
	s := New()
	s.SetCurrentUser(protocol.Credentials{Login: "alice", Password: "pw"})
	s.AddBatch([]protocol.UserItem{
		{Login: "alice", Online: true},
		{Login: "bob", Online: true},
		{Login: "carol", Online: false},
	})

	assert.Equal(t, 2, s.Len())
	_, ok := s.FindByLogin("alice")
	assert.False(t, ok)
}

func TestAllKeepsInsertionOrder(t *testing.T) {
	s := New()
	s.Upsert(protocol.UserItem{Login: "carol"})
	s.Upsert(protocol.UserItem{Login: "bob"})
	s.Upsert(protocol.UserItem{Login: "carol", Online: true})

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "carol", all[0].Login)
	assert.Equal(t, "bob", all[1].Login)
}

func TestClearResetsSession(t *testing.T) {
	s := New()
	s.SetCurrentUser(protocol.Credentials{Login: "alice", Password: "pw"})
	s.Upsert(protocol.UserItem{Login: "bob"})

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.CurrentLogin())
	_, ok := s.FindByLogin("bob")
	assert.False(t, ok)
}
