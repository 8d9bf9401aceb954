package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

func testConn(id, user string) domain.Connection {
	return domain.Connection{
		ID:       id,
		UserID:   user,
		Provider: domain.ProviderGoogleDrive,
		Token: domain.OAuthToken{
			AccessToken: "access",
			Expiry:      time.Now().Add(time.Hour),
		},
	}
}

func TestConnectionStore_SaveLoad(t *testing.T) {
	store := NewConnectionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testConn("c1", "u1")))

	conn, err := store.Load(ctx, domain.ConnectionKey{UserID: "u1", Provider: domain.ProviderGoogleDrive})
	require.NoError(t, err)
	assert.Equal(t, "c1", conn.ID)

	_, err = store.Load(ctx, domain.ConnectionKey{UserID: "u2", Provider: domain.ProviderGoogleDrive})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConnectionStore_SaveOverwritesSameKey(t *testing.T) {
	store := NewConnectionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testConn("c1", "u1")))

	updated := testConn("c1", "u1")
	updated.AccountIdentifier = "alice@example.com"
	require.NoError(t, store.Save(ctx, updated))

	conns, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "alice@example.com", conns[0].AccountIdentifier)
}

func TestConnectionStore_GetByID(t *testing.T) {
	store := NewConnectionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testConn("c1", "u1")))

	conn, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "u1", conn.UserID)

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConnectionStore_Delete(t *testing.T) {
	store := NewConnectionStore()
	ctx := context.Background()
	key := domain.ConnectionKey{UserID: "u1", Provider: domain.ProviderGoogleDrive}

	require.NoError(t, store.Save(ctx, testConn("c1", "u1")))
	require.NoError(t, store.Delete(ctx, key))

	_, err := store.Load(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The ID index follows the deletion.
	_, err = store.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConnectionStore_ListIsACopy(t *testing.T) {
	store := NewConnectionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testConn("c1", "u1")))

	conns, err := store.List(ctx)
	require.NoError(t, err)
	conns[0].UserID = "mutated"

	reloaded, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "u1", reloaded.UserID)
}
