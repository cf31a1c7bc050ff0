package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"portal-backend/shared/clients"
	"portal-backend/shared/database"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/store"
	utils "portal-backend/shared/utils/auth"
	"portal-backend/shared/utils/document"
	"portal-backend/shared/utils/payload"
	"portal-backend/shared/utils/permission"
)

const testPassword = "Secret123"

type sentMail struct {
	Template  clients.Template
	Recipient string
	Vars      map[string]string
}

type pushedEvent struct {
	Channel string
	Event   string
	Data    map[string]any
}

type fakeNotifier struct {
	mu      sync.Mutex
	mails   []sentMail
	events  []pushedEvent
	sendErr error
}

func (f *fakeNotifier) Send(_ context.Context, template clients.Template, recipient string, vars map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mails = append(f.mails, sentMail{Template: template, Recipient: recipient, Vars: vars})
	return nil
}

func (f *fakeNotifier) Push(_ context.Context, channel, event string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, pushedEvent{Channel: channel, Event: event, Data: data})
	return nil
}

func (f *fakeNotifier) sent(template clients.Template) []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMail
	for _, m := range f.mails {
		if m.Template == template {
			out = append(out, m)
		}
	}
	return out
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) URL(_ context.Context, key string) (string, error) {
	return "https://files.test/" + key, nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(f.objects, key)
	return nil
}

type fakeCache struct {
	mu       sync.Mutex
	sessions map[string]uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{sessions: map[string]uuid.UUID{}}
}

func (f *fakeCache) SetSession(_ context.Context, sid string, userID uuid.UUID, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sid] = userID
	return nil
}

func (f *fakeCache) GetSession(_ context.Context, sid string) (uuid.UUID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.sessions[sid]
	return id, ok
}

func (f *fakeCache) InvalidateSessions(_ context.Context, sids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sid := range sids {
		delete(f.sessions, sid)
	}
	return nil
}

func (f *fakeCache) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    store.Store
	attempts func(kind auth.AttemptKind) int
	notifier *fakeNotifier
	storage  *fakeStorage
	cache    *fakeCache
	clock    *fakeClock

	tokens    *TokenService
	sessions  *SessionService
	profiles  *ProfileService
	accounts  *AccountService
	flows     *AuthFlowService
	documents *IDDocumentService
}

// newFixture wires the services over the memory store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	return newFixtureOn(t, mem, mem.AttemptCount)
}

// newSQLFixture wires the services over the gorm store on a private sqlite
// database.
func newSQLFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	count := func(kind auth.AttemptKind) int {
		var n int64
		require.NoError(t, db.Model(&auth.AuthAttempt{}).Where("kind = ?", kind).Count(&n).Error)
		return int(n)
	}
	return newFixtureOn(t, store.NewGormStore(db), count)
}

// eachEngine runs fn once per persistence engine.
func eachEngine(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Run("memory", func(t *testing.T) { fn(t, newFixture(t)) })
	t.Run("gorm", func(t *testing.T) { fn(t, newSQLFixture(t)) })
}

func newFixtureOn(t *testing.T, st store.Store, attempts func(auth.AttemptKind) int) *fixture {
	t.Helper()

	f := &fixture{
		store:    st,
		attempts: attempts,
		notifier: &fakeNotifier{},
		storage:  newFakeStorage(),
		cache:    newFakeCache(),
		clock:    &fakeClock{now: time.Now().UTC()},
	}
	clock := f.clock.Now
	signer := utils.NewSessionSigner("test-secret", time.Hour)

	f.tokens = NewTokenService(f.store, clock)
	f.sessions = NewSessionService(f.store, signer, f.cache, clock)
	f.profiles = NewProfileService(f.store, f.storage)
	f.accounts = NewAccountService(f.store, f.sessions, f.tokens, f.profiles, f.notifier, "https://portal.test/", InlineDispatcher, clock)
	f.flows = NewAuthFlowService(f.store, f.tokens, f.sessions, f.notifier, "https://portal.test", clock)
	f.documents = NewIDDocumentService(f.store, f.storage, f.accounts, f.sessions, f.profiles, f.notifier,
		document.UploadRules{MaxSize: 1 << 20, Extensions: []string{".pdf", ".png"}}, InlineDispatcher, clock)
	return f
}

func (f *fixture) attemptCount(kind auth.AttemptKind) int { return f.attempts(kind) }

var userSeq int

func (f *fixture) user(t *testing.T, utype models.UserType, mutate ...func(*models.User)) *models.User {
	t.Helper()
	userSeq++

	hashed, err := utils.HashPassword(testPassword)
	require.NoError(t, err)

	u := &models.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("user%d@example.com", userSeq),
		Password:  hashed,
		FirstName: "Test",
		LastName:  fmt.Sprintf("User%d", userSeq),
		Phone:     "+41 79 000 00 00",
		Utype:     utype,
		CreatedAt: f.clock.Now(),
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))

	loaded, err := f.store.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return loaded
}

func (f *fixture) viewer(t *testing.T, u *models.User) permission.Viewer {
	t.Helper()
	loaded, err := f.store.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return permission.As(loaded)
}

// login opens a session for u and returns its token.
func (f *fixture) login(t *testing.T, u *models.User) string {
	t.Helper()
	var token string
	err := f.store.Transaction(context.Background(), func(tx store.Store) error {
		var err error
		token, _, err = f.sessions.Refresh(context.Background(), tx, u.ID, ClientInfo{})
		return err
	})
	require.NoError(t, err)
	return token
}

func withPicture(u *models.User) { u.Picture = "pictures/" + u.ID.String() + ".png" }

func fileUpload(name string, body string) Upload {
	return Upload{FileName: name, Size: int64(len(body)), Content: bytes.NewBufferString(body)}
}

func text(v string) payload.Optional[string] { return payload.Some(v) }
