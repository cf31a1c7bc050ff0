package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"portal-backend/shared/clients"
)

// Notifier delivers templated mails and realtime events.
type Notifier interface {
	Send(ctx context.Context, template clients.Template, recipient string, vars map[string]string) error
	Push(ctx context.Context, channel, event string, data map[string]any) error
}

// SessionCache remembers which user owns a session id.
type SessionCache interface {
	SetSession(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (uuid.UUID, bool)
	InvalidateSessions(ctx context.Context, sessionIDs ...string) error
}

// ObjectStorage stores uploaded files and hands out download URLs.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Clock returns the current time.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

// Dispatcher runs a best-effort side effect after the outcome of a request is
// settled. Production runs it on a goroutine.
type Dispatcher func(task func())

func AsyncDispatcher(task func()) { go task() }

func InlineDispatcher(task func()) { task() }

// ClientInfo describes where a login came from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
