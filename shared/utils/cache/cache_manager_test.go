package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNilCacheManagerIsEmpty(t *testing.T) {
	var cm *CacheManager
	ctx := context.Background()

	assert.NoError(t, cm.SetSession(ctx, "sid", uuid.New(), time.Minute))
	_, ok := cm.GetSession(ctx, "sid")
	assert.False(t, ok)
	assert.NoError(t, cm.InvalidateSessions(ctx, "sid"))
	assert.Error(t, cm.TestConnection(ctx))
	assert.NoError(t, cm.Close())
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc", SessionKey("abc"))
}
