package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/store"
)

func TestRefreshReplacesSession(t *testing.T) {
	ctx := context.Background()
	eachEngine(t, func(t *testing.T, f *fixture) {
		u := f.user(t, models.UserTypeCustomer)

		first := f.login(t, u)
		resolved, err := f.sessions.Resolve(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, u.ID, resolved.ID)
		assert.Equal(t, 1, f.cache.size())

		var dropped []string
		require.NoError(t, f.store.Transaction(ctx, func(tx store.Store) error {
			var err error
			_, dropped, err = f.sessions.Refresh(ctx, tx, u.ID, ClientInfo{IPAddress: "10.0.0.1"})
			return err
		}))
		require.Len(t, dropped, 1)
		f.sessions.Forget(ctx, dropped)
		assert.Equal(t, 0, f.cache.size())

		_, err = f.sessions.Resolve(ctx, first)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	})
}

func TestResolveRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sessions.Resolve(ctx, "not-a-jwt")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	u := f.user(t, models.UserTypeCustomer)
	token := f.login(t, u)

	f.clock.Advance(2 * time.Hour)
	_, err = f.sessions.Resolve(ctx, token)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "session past its expiry")
}

func TestRemoveRevokesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, models.UserTypeCustomer)
	token := f.login(t, u)

	var dropped []string
	require.NoError(t, f.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		dropped, err = f.sessions.Remove(ctx, tx, u.ID)
		return err
	}))
	f.sessions.Forget(ctx, dropped)

	_, err := f.sessions.Resolve(ctx, token)
	assert.Error(t, err)
}

// revokingCache runs revoke in the middle of the first cache fill.
type revokingCache struct {
	*fakeCache
	revoke func()
	once   bool
}

func (c *revokingCache) SetSession(ctx context.Context, sid string, userID uuid.UUID, ttl time.Duration) error {
	if !c.once {
		c.once = true
		c.revoke()
	}
	return c.fakeCache.SetSession(ctx, sid, userID, ttl)
}

func TestResolveDoesNotCacheSessionRevokedDuringFill(t *testing.T) {
	ctx := context.Background()
	eachEngine(t, func(t *testing.T, f *fixture) {
		u := f.user(t, models.UserTypeCustomer)
		token := f.login(t, u)

		cache := &revokingCache{fakeCache: newFakeCache()}
		sessions := NewSessionService(f.store, f.sessions.signer, cache, f.clock.Now)
		cache.revoke = func() {
			var dropped []string
			require.NoError(t, f.store.Transaction(ctx, func(tx store.Store) error {
				var err error
				dropped, err = sessions.Remove(ctx, tx, u.ID)
				return err
			}))
			sessions.Forget(ctx, dropped)
		}

		_, err := sessions.Resolve(ctx, token)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
		assert.Equal(t, 0, cache.size())

		_, err = sessions.Resolve(ctx, token)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	})
}
