package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	redisclient "github.com/angelmondragon/marketplace-backend/pkg/redis"
)

type fixture struct {
	manager *Manager
	srv     *miniredis.Miniredis
	client  *redisclient.Client
}

func setup(t *testing.T) fixture {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redisclient.Wrap(redislib.NewClient(&redislib.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	manager, err := NewManager(client, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	require.NoError(t, err)
	return fixture{manager: manager, srv: srv, client: client}
}

func TestRotateIssuesFreshSessionOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	identityID := uuid.New()

	accessID := NewAccessID()
	token, err := f.manager.Generate(ctx, accessID, identityID)
	require.NoError(t, err)
	key := f.client.SessionKey(accessID)
	require.Equal(t, time.Hour, f.srv.TTL(key))

	rotation, err := f.manager.Rotate(ctx, accessID, token)
	require.NoError(t, err)
	require.Equal(t, identityID, rotation.IdentityID)
	require.NotEqual(t, token, rotation.RefreshToken)
	require.False(t, f.srv.Exists(key))
	require.True(t, f.srv.Exists(f.client.SessionKey(rotation.AccessID)))

	_, err = f.manager.Rotate(ctx, accessID, token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// the new pair works in turn
	_, err = f.manager.Rotate(ctx, rotation.AccessID, rotation.RefreshToken)
	require.NoError(t, err)
}

func TestStoredSessionHoldsNoPlaintextToken(t *testing.T) {
	f := setup(t)
	accessID := NewAccessID()
	token, err := f.manager.Generate(context.Background(), accessID, uuid.New())
	require.NoError(t, err)

	stored, err := f.srv.Get(f.client.SessionKey(accessID))
	require.NoError(t, err)
	require.False(t, strings.Contains(stored, token))
}

func TestRevokeEndsSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	accessID := NewAccessID()
	_, err := f.manager.Generate(ctx, accessID, uuid.New())
	require.NoError(t, err)

	live, err := f.manager.HasSession(ctx, accessID)
	require.NoError(t, err)
	require.True(t, live)

	require.NoError(t, f.manager.Revoke(ctx, accessID))
	live, err = f.manager.HasSession(ctx, accessID)
	require.NoError(t, err)
	require.False(t, live)

	_, err = f.manager.HasSession(ctx, " ")
	require.Error(t, err)
}

func TestRotateRejectsBadInput(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	corrupt := NewAccessID()
	require.NoError(t, f.srv.Set(f.client.SessionKey(corrupt), "not-json"))
	_, err := f.manager.Rotate(ctx, corrupt, "whatever")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.manager.Rotate(ctx, NewAccessID(), "unknown")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.manager.Rotate(ctx, "", "x")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestWrongTokenBurnsSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	accessID := NewAccessID()
	token, err := f.manager.Generate(ctx, accessID, uuid.New())
	require.NoError(t, err)

	_, err = f.manager.Rotate(ctx, accessID, "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	require.False(t, f.srv.Exists(f.client.SessionKey(accessID)))

	_, err = f.manager.Rotate(ctx, accessID, token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestNewManagerChecksLifetimes(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redisclient.Wrap(redislib.NewClient(&redislib.Options{Addr: srv.Addr()}))

	_, err := NewManager(client, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)
	_, err = NewManager(client, config.JWTConfig{ExpirationMinutes: 5})
	require.Error(t, err)
	_, err = NewManager(nil, config.JWTConfig{ExpirationMinutes: 1, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)
}
