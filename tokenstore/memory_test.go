package tokenstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scothinks/bioverify/tokenstore"
)

func TestMemStorePair(t *testing.T) {
	store := tokenstore.NewMemStore()

	_, err := store.Get(tokenstore.Access)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)

	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	access, err := store.Get(tokenstore.Access)
	require.NoError(t, err)
	require.Equal(t, "access-1", access)

	refresh, err := store.Get(tokenstore.Refresh)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", refresh)
}

func TestMemStoreSetAccessLeavesRefresh(t *testing.T) {
	store := tokenstore.NewMemStore()
	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	require.NoError(t, store.SetAccess("access-2"))

	access, err := store.Get(tokenstore.Access)
	require.NoError(t, err)
	require.Equal(t, "access-2", access)

	refresh, err := store.Get(tokenstore.Refresh)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", refresh)
}

func TestMemStoreClearRemovesBoth(t *testing.T) {
	store := tokenstore.NewMemStore()
	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	require.NoError(t, store.Clear())

	_, err := store.Get(tokenstore.Access)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
	_, err = store.Get(tokenstore.Refresh)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)

	// Clearing an already-empty store is not an error.
	require.NoError(t, store.Clear())
}

func TestMemStoreNotifiesOnEveryMutation(t *testing.T) {
	store := tokenstore.NewMemStore()

	var notifications int
	store.Subscribe(func() { notifications++ })

	require.NoError(t, store.SetPair("access-1", "refresh-1"))
	require.NoError(t, store.SetAccess("access-2"))
	require.NoError(t, store.Clear())

	require.Equal(t, 3, notifications)
}
