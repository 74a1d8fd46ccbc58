package store

import (
	"context"
	"strings"
	"sync"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var storeTracer = otel.Tracer("store")

// AuthStore holds the resident identity and session token.
//
// State machine: anonymous -> authenticating -> authenticated, with failure
// and logout both returning to anonymous. Only one login or registration
// may be in flight; a second one is rejected with domain.ErrAuthInProgress.
type AuthStore struct {
	snapshots port.SnapshotStore
	auth      port.Authenticator
	logger    *zap.Logger
	metrics   *observability.Metrics

	mu      sync.RWMutex
	status  domain.AuthStatus
	user    *domain.User
	token   string
	loading bool
}

// NewAuthStore creates an anonymous auth store. Call Load to hydrate it.
func NewAuthStore(snapshots port.SnapshotStore, auth port.Authenticator, logger *zap.Logger, metrics *observability.Metrics) *AuthStore {
	return &AuthStore{
		snapshots: snapshots,
		auth:      auth,
		logger:    logger,
		metrics:   metrics,
		status:    domain.AuthAnonymous,
	}
}

// Name identifies the store in logs and metrics.
func (s *AuthStore) Name() string { return "auth" }

// Load restores the persisted session. isAuthenticated is recomputed from
// the presence of a user; a token without a user is discarded.
func (s *AuthStore) Load(ctx context.Context) error {
	var state domain.AuthState
	err := persist.Load(ctx, s.snapshots, persist.AuthKey, &state)
	if err != nil {
		s.metrics.IncrPersistError(s.Name(), "read")
		state = domain.AuthState{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user, s.token, s.status = nil, "", domain.AuthAnonymous
	if state.User != nil {
		u := *state.User
		s.user = &u
		s.status = domain.AuthAuthenticated
		if state.Token != nil {
			s.token = *state.Token
		}
	}
	return err
}

// Login authenticates with the configured collaborator.
func (s *AuthStore) Login(ctx context.Context, email, password string) (domain.User, error) {
	ctx, span := storeTracer.Start(ctx, "AuthStore.Login")
	defer span.End()

	if err := s.begin(); err != nil {
		return domain.User{}, err
	}

	session, err := s.auth.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return domain.User{}, s.fail(ctx, "login", err)
	}
	span.SetAttributes(attribute.String("user.id", session.User.ID))
	return s.succeed(ctx, "login", session), nil
}

// Register creates an account and signs it in. The name must be non-empty.
func (s *AuthStore) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	ctx, span := storeTracer.Start(ctx, "AuthStore.Register")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, &domain.ErrAuth{
			Op:  "register",
			Err: &domain.ErrValidation{Field: "name", Message: "name is required"},
		}
	}

	if err := s.begin(); err != nil {
		return domain.User{}, err
	}

	session, err := s.auth.Register(ctx, name, strings.TrimSpace(email), password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "register failed")
		return domain.User{}, s.fail(ctx, "register", err)
	}
	span.SetAttributes(attribute.String("user.id", session.User.ID))
	return s.succeed(ctx, "register", session), nil
}

// Logout clears the session and persists the cleared state. It never fails.
func (s *AuthStore) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user, s.token = nil, ""
	if s.status != domain.AuthAuthenticating {
		s.status = domain.AuthAnonymous
	}
	s.metrics.IncrStoreMutation(s.Name(), "logout")
	s.persistLocked(ctx)
	s.logger.Info("session cleared")
}

// SetLoading sets the busy flag shown to the presentation layer.
func (s *AuthStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// Status returns the current state machine position.
func (s *AuthStore) Status() domain.AuthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Token returns the current session token, empty when anonymous.
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.token
}

// State returns the persisted view {isAuthenticated, user, token}.
func (s *AuthStore) State() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Session returns the view served by GET /v1/auth/session.
func (s *AuthStore) Session() domain.SessionResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := domain.SessionResponse{
		IsAuthenticated: s.user != nil,
		Status:          s.status,
		IsLoading:       s.loading,
	}
	if s.user != nil {
		u := *s.user
		resp.User = &u
		resp.Token = s.token
	}
	return resp
}

// Flush re-persists the current snapshot.
func (s *AuthStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	state := s.stateLocked()
	s.mu.RUnlock()
	return persist.Save(ctx, s.snapshots, persist.AuthKey, state)
}

// begin moves the store into authenticating, clearing any resident identity.
func (s *AuthStore) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.AuthAuthenticating {
		return domain.ErrAuthInProgress
	}
	s.status = domain.AuthAuthenticating
	s.loading = true
	s.user, s.token = nil, ""
	return nil
}

func (s *AuthStore) fail(ctx context.Context, op string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = domain.AuthAnonymous
	s.loading = false
	s.user, s.token = nil, ""
	s.persistLocked(ctx)

	s.logger.Warn("authentication failed", zap.String("op", op), zap.Error(cause))
	return &domain.ErrAuth{Op: op, Err: cause}
}

func (s *AuthStore) succeed(ctx context.Context, op string, session *domain.Session) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := session.User
	s.user = &u
	s.token = session.Token
	s.status = domain.AuthAuthenticated
	s.loading = false
	s.metrics.IncrStoreMutation(s.Name(), op)
	s.persistLocked(ctx)

	s.logger.Info("authenticated", zap.String("op", op), zap.String("user_id", u.ID))
	return u
}

func (s *AuthStore) stateLocked() domain.AuthState {
	state := domain.AuthState{IsAuthenticated: s.user != nil}
	if s.user != nil {
		u := *s.user
		token := s.token
		state.User = &u
		state.Token = &token
	}
	return state
}

func (s *AuthStore) persistLocked(ctx context.Context) {
	if err := persist.Save(ctx, s.snapshots, persist.AuthKey, s.stateLocked()); err != nil {
		s.metrics.IncrPersistError(s.Name(), "write")
		s.logger.Error("persist auth snapshot", zap.Error(err))
	}
}
