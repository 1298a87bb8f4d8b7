package recordstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "records.jsonl"))
	require.NoError(t, err)

	e := Entry{Hash: "abc", Envelope: map[string]string{"nonce": "x"}, Owner: "acme"}
	require.NoError(t, s.Put(e))

	got, ok := s.Get("abc")
	require.True(t, ok)
	require.Equal(t, e, got)

	_, ok = s.Get("missing")
	require.False(t, ok)
}

func TestPutBatch(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "records.jsonl"))
	require.NoError(t, err)

	entries := []Entry{
		{Hash: "a", Envelope: map[string]string{"nonce": "1"}},
		{Hash: "b", Envelope: map[string]string{"nonce": "2"}},
	}
	require.NoError(t, s.PutBatch(entries))
	require.ElementsMatch(t, []string{"a", "b"}, s.AllHashes())
}

func TestOpenReloadsExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(Entry{Hash: "persisted", Envelope: map[string]string{"nonce": "n"}}))

	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok := reopened.Get("persisted")
	require.True(t, ok)
	require.Equal(t, "persisted", got.Hash)
}

func TestPutOverwritesSameHash(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "records.jsonl"))
	require.NoError(t, err)

	require.NoError(t, s.Put(Entry{Hash: "k", Envelope: map[string]string{"nonce": "1"}}))
	require.NoError(t, s.Put(Entry{Hash: "k", Envelope: map[string]string{"nonce": "2"}}))

	got, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "2", got.Envelope["nonce"])
}
