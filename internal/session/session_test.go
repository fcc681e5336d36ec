package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGarbage(path string) error {
	return os.WriteFile(path, []byte("{not json"), 0o600)
}

func TestFlagRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	f := NewFileFlag(path)

	assert.False(t, f.Get())

	require.NoError(t, f.Set(true))
	assert.True(t, f.Get())
	assert.True(t, NewFileFlag(path).Get())

	require.NoError(t, f.Set(false))
	assert.False(t, f.Get())
}

func TestCorruptFileReadsAsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	f := NewFileFlag(path)
	require.NoError(t, f.Set(true))

	require.NoError(t, writeGarbage(path))
	assert.False(t, f.Get())
}
