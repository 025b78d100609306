package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentList_AddOrdersMostRecentFirst(t *testing.T) {
	r := NewRecentList(filepath.Join(t.TempDir(), "recent.txt"))

	require.NoError(t, r.Add("/configs/a.ovpn"))
	require.NoError(t, r.Add("/configs/b.ovpn"))
	require.NoError(t, r.Add("/configs/c.ovpn"))

	assert.Equal(t, []string{"/configs/c.ovpn", "/configs/b.ovpn", "/configs/a.ovpn"}, r.Entries())
}

func TestRecentList_DeduplicatesByExactPath(t *testing.T) {
	r := NewRecentList(filepath.Join(t.TempDir(), "recent.txt"))

	require.NoError(t, r.Add("/configs/a.ovpn"))
	require.NoError(t, r.Add("/configs/b.ovpn"))
	require.NoError(t, r.Add("/configs/a.ovpn"))

	assert.Equal(t, []string{"/configs/a.ovpn", "/configs/b.ovpn"}, r.Entries())
}

func TestRecentList_CappedAtTenEntries(t *testing.T) {
	r := NewRecentList(filepath.Join(t.TempDir(), "recent.txt"))

	for i := 0; i < 15; i++ {
		require.NoError(t, r.Add(filepath.Join("/configs", string(rune('a'+i))+".ovpn")))
	}

	entries := r.Entries()
	assert.Len(t, entries, MaxRecentConfigs)
	// Newest kept, oldest dropped.
	assert.Equal(t, "/configs/o.ovpn", entries[0])
	assert.Equal(t, "/configs/f.ovpn", entries[len(entries)-1])
}

func TestRecentList_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.txt")

	r := NewRecentList(path)
	require.NoError(t, r.Add("/configs/a.ovpn"))
	require.NoError(t, r.Add("/configs/b.ovpn"))

	reloaded := NewRecentList(path)
	assert.Equal(t, []string{"/configs/b.ovpn", "/configs/a.ovpn"}, reloaded.Entries())
}

func TestRecentList_LoadSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.txt")
	require.NoError(t, os.WriteFile(path, []byte("/configs/a.ovpn\n\n  \n/configs/b.ovpn\n"), 0600))

	r := NewRecentList(path)
	assert.Equal(t, []string{"/configs/a.ovpn", "/configs/b.ovpn"}, r.Entries())
}

func TestRecentList_MissingFileYieldsEmptyList(t *testing.T) {
	r := NewRecentList(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Empty(t, r.Entries())
}

func TestRecentList_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.txt")

	r := NewRecentList(path)
	require.NoError(t, r.Add("/configs/a.ovpn"))
	require.NoError(t, r.Clear())

	assert.Empty(t, r.Entries())
	assert.Empty(t, NewRecentList(path).Entries())
}
