package localstore

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmood/marketmood/internal/api"
)

func TestMemoryStore_Session(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok := store.Session(ctx)
	assert.False(t, ok)
	assert.Empty(t, store.Token(ctx))

	session := &api.Session{
		Token:   "tok",
		Profile: api.Profile{ID: "u1", Username: "ava"},
	}
	require.NoError(t, store.SaveSession(ctx, session))

	got, ok := store.Session(ctx)
	require.True(t, ok)
	assert.Equal(t, "ava", got.Profile.Username)
	assert.Equal(t, "tok", store.Token(ctx))

	require.NoError(t, store.ClearSession(ctx))
	_, ok = store.Session(ctx)
	assert.False(t, ok)
}

func TestMemoryStore_Flags(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	assert.False(t, store.BetaSignupDone(ctx))
	require.NoError(t, store.SetBetaSignupDone(ctx))
	assert.True(t, store.BetaSignupDone(ctx))

	assert.False(t, store.ModalDismissed(ctx))
	require.NoError(t, store.SetModalDismissed(ctx))
	assert.True(t, store.ModalDismissed(ctx))
}

func TestRedisStore_Token(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)
	ctx := context.Background()

	mock.ExpectGet(keyToken).SetVal("tok789")
	mock.ExpectGet(keyProfile).SetVal(`{"id":"u1","username":"ava","email":""}`)

	assert.Equal(t, "tok789", store.Token(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SessionMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	mock.ExpectGet(keyToken).RedisNil()

	_, ok := store.Session(context.Background())
	assert.False(t, ok)
}

func TestRedisStore_Flags(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)
	ctx := context.Background()

	mock.ExpectSet(keyBetaSignup, "1", 0).SetVal("OK")
	require.NoError(t, store.SetBetaSignupDone(ctx))

	mock.ExpectGet(keyBetaSignup).SetVal("1")
	assert.True(t, store.BetaSignupDone(ctx))

	mock.ExpectSet(keyModalDismissed, "1", sessionTTL).SetVal("OK")
	require.NoError(t, store.SetModalDismissed(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}
