package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock authenticator ---

type mockAuthenticator struct {
	loginFn    func(ctx context.Context, email, password string) (*domain.Session, error)
	registerFn func(ctx context.Context, name, email, password string) (*domain.Session, error)
}

func (m *mockAuthenticator) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthenticator) Register(ctx context.Context, name, email, password string) (*domain.Session, error) {
	return m.registerFn(ctx, name, email, password)
}

func acceptAll() *mockAuthenticator {
	return &mockAuthenticator{
		loginFn: func(_ context.Context, email, _ string) (*domain.Session, error) {
			return &domain.Session{
				User:  domain.User{ID: "u-1", Email: email, Name: "Ada", CreatedAt: "2024-01-01T00:00:00Z"},
				Token: "tok-1",
			}, nil
		},
		registerFn: func(_ context.Context, name, email, _ string) (*domain.Session, error) {
			return &domain.Session{
				User:  domain.User{ID: "u-2", Email: email, Name: name, CreatedAt: "2024-01-01T00:00:00Z"},
				Token: "tok-2",
			}, nil
		},
	}
}

func newAuthStore(snap *persist.Memory, auth *mockAuthenticator) *store.AuthStore {
	return store.NewAuthStore(snap, auth, zap.NewNop(), observability.NewMetrics())
}

func TestAuthStore_LoginLogout(t *testing.T) {
	ctx := context.Background()
	s := newAuthStore(persist.NewMemory(), acceptAll())

	user, err := s.Login(ctx, " ada@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, domain.AuthAuthenticated, s.Status())
	assert.Equal(t, "tok-1", s.Token())

	state := s.State()
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	require.NotNil(t, state.Token)

	s.Logout(ctx)
	assert.Equal(t, domain.AuthState{IsAuthenticated: false, User: nil, Token: nil}, s.State())
	assert.Equal(t, domain.AuthAnonymous, s.Status())
	assert.Empty(t, s.Token())
}

func TestAuthStore_LogoutPersistsClearedState(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	s := newAuthStore(snap, acceptAll())

	_, err := s.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	s.Logout(ctx)

	raw, found, err := snap.Get(ctx, persist.AuthKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"state":{"isAuthenticated":false,"user":null,"token":null},"version":0}`, string(raw))
}

func TestAuthStore_LoginFailureReturnsToAnonymous(t *testing.T) {
	ctx := context.Background()
	auth := acceptAll()
	s := newAuthStore(persist.NewMemory(), auth)

	_, err := s.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	auth.loginFn = func(context.Context, string, string) (*domain.Session, error) {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	_, err = s.Login(ctx, "ada@example.com", "wrong")

	var authErr *domain.ErrAuth
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "login", authErr.Op)
	var unauth *domain.ErrUnauthorized
	assert.True(t, errors.As(err, &unauth), "cause should be preserved")

	assert.Equal(t, domain.AuthAnonymous, s.Status())
	assert.Equal(t, domain.AuthState{}, s.State())
	assert.False(t, s.Session().IsLoading)
}

func TestAuthStore_RegisterRequiresName(t *testing.T) {
	called := false
	auth := acceptAll()
	auth.registerFn = func(context.Context, string, string, string) (*domain.Session, error) {
		called = true
		return nil, nil
	}
	s := newAuthStore(persist.NewMemory(), auth)

	_, err := s.Register(context.Background(), "   ", "ada@example.com", "secret")

	var authErr *domain.ErrAuth
	require.True(t, errors.As(err, &authErr))
	var valErr *domain.ErrValidation
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "name", valErr.Field)
	assert.False(t, called)
	assert.Equal(t, domain.AuthAnonymous, s.Status())
}

func TestAuthStore_Register(t *testing.T) {
	s := newAuthStore(persist.NewMemory(), acceptAll())

	user, err := s.Register(context.Background(), "Grace", "grace@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.Name)
	assert.Equal(t, "tok-2", s.Token())
	assert.True(t, s.Session().IsAuthenticated)
}

func TestAuthStore_RejectsConcurrentLogin(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	auth := acceptAll()
	inner := auth.loginFn
	auth.loginFn = func(ctx context.Context, email, password string) (*domain.Session, error) {
		close(entered)
		<-release
		return inner(ctx, email, password)
	}
	s := newAuthStore(persist.NewMemory(), auth)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = s.Login(context.Background(), "ada@example.com", "secret")
	}()

	<-entered
	assert.Equal(t, domain.AuthAuthenticating, s.Status())
	assert.True(t, s.Session().IsLoading)

	_, err := s.Login(context.Background(), "ada@example.com", "secret")
	assert.ErrorIs(t, err, domain.ErrAuthInProgress)
	_, err = s.Register(context.Background(), "Ada", "ada@example.com", "secret")
	assert.ErrorIs(t, err, domain.ErrAuthInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, domain.AuthAuthenticated, s.Status())
}

func TestAuthStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	first := newAuthStore(snap, acceptAll())
	_, err := first.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	restarted := newAuthStore(snap, acceptAll())
	require.NoError(t, restarted.Load(ctx))

	assert.Equal(t, first.State(), restarted.State())
	assert.Equal(t, domain.AuthAuthenticated, restarted.Status())
}

func TestAuthStore_LoadDerivesIsAuthenticatedFromUser(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	require.NoError(t, snap.Set(ctx, persist.AuthKey,
		[]byte(`{"state":{"isAuthenticated":true,"user":null,"token":"stale"},"version":0}`)))

	s := newAuthStore(snap, acceptAll())
	require.NoError(t, s.Load(ctx))

	assert.Equal(t, domain.AuthState{}, s.State())
	assert.Empty(t, s.Token())
}

func TestAuthStore_LoadCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	require.NoError(t, snap.Set(ctx, persist.AuthKey, []byte(`{{{`)))

	s := newAuthStore(snap, acceptAll())
	err := s.Load(ctx)

	var readErr *domain.ErrPersistenceRead
	assert.True(t, errors.As(err, &readErr))
	assert.Equal(t, domain.AuthState{}, s.State())
	assert.Equal(t, domain.AuthAnonymous, s.Status())
}

func TestAuthStore_SetLoading(t *testing.T) {
	s := newAuthStore(persist.NewMemory(), acceptAll())
	s.SetLoading(true)
	assert.True(t, s.Session().IsLoading)
	s.SetLoading(false)
	assert.False(t, s.Session().IsLoading)
}
