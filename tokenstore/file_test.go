package tokenstore_test

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/scothinks/bioverify/tokenstore"
)

func newTestFileStore(t *testing.T, key []byte) (*tokenstore.FileStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tokens")
	store, err := tokenstore.NewFileStore(path, key)
	require.NoError(t, err)
	return store, path
}

func testKey(t *testing.T) []byte {
	t.Helper()

	key := make([]byte, chacha20poly1305.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, _ := newTestFileStore(t, nil)

	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	access, err := store.Get(tokenstore.Access)
	require.NoError(t, err)
	require.Equal(t, "access-1", access)

	refresh, err := store.Get(tokenstore.Refresh)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", refresh)
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	store, path := newTestFileStore(t, nil)
	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	// A fresh instance over the same path sees the same pair.
	reopened, err := tokenstore.NewFileStore(path, nil)
	require.NoError(t, err)

	access, err := reopened.Get(tokenstore.Access)
	require.NoError(t, err)
	require.Equal(t, "access-1", access)
}

func TestFileStoreClearRemovesBoth(t *testing.T) {
	store, path := newTestFileStore(t, nil)
	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	require.NoError(t, store.Clear())

	_, err := store.Get(tokenstore.Access)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
	_, err = store.Get(tokenstore.Refresh)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, store.Clear())
}

func TestFileStoreEncryptedRoundTrip(t *testing.T) {
	key := testKey(t)
	store, path := newTestFileStore(t, key)

	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	// The raw file must not contain the tokens.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "access-1")
	require.NotContains(t, string(data), "refresh-1")

	reopened, err := tokenstore.NewFileStore(path, key)
	require.NoError(t, err)

	access, err := reopened.Get(tokenstore.Access)
	require.NoError(t, err)
	require.Equal(t, "access-1", access)
}

func TestFileStoreWrongKeyFails(t *testing.T) {
	store, path := newTestFileStore(t, testKey(t))
	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	wrongKey, err := tokenstore.NewFileStore(path, testKey(t))
	require.NoError(t, err)

	_, err = wrongKey.Get(tokenstore.Access)
	require.Error(t, err)
}

func TestFileStoreRejectsBadKeyLength(t *testing.T) {
	_, err := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "tokens"), []byte("short"))
	require.ErrorIs(t, err, tokenstore.ErrInvalidKeyLength)
}
