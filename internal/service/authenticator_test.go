package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-with-enough-entropy"

func newLocalAuth(snap *persist.Memory, ttl time.Duration) *service.LocalAuthenticator {
	return service.NewLocalAuthenticator(snap, testSecret, ttl, zap.NewNop())
}

func TestLocalAuthenticator_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	auth := newLocalAuth(snap, time.Hour)

	reg, err := auth.Register(ctx, " Ada ", "Ada@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", reg.User.Name)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.User.ID)
	assert.NotEmpty(t, reg.Token)

	// survives a restart: a fresh authenticator reads the same table
	login, err := newLocalAuth(snap, time.Hour).Login(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	claims, err := auth.ValidateAccessToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.Sub)
	assert.Equal(t, "access", claims.Type)
}

func TestLocalAuthenticator_RejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	auth := newLocalAuth(persist.NewMemory(), time.Hour)
	_, err := auth.Register(ctx, "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	var unauth *domain.ErrUnauthorized
	_, err = auth.Login(ctx, "ada@example.com", "wrong-password")
	assert.True(t, errors.As(err, &unauth))

	_, err = auth.Login(ctx, "nobody@example.com", "secret1")
	assert.True(t, errors.As(err, &unauth))
}

func TestLocalAuthenticator_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	auth := newLocalAuth(persist.NewMemory(), time.Hour)
	_, err := auth.Register(ctx, "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "Ada Two", "ADA@example.com", "secret2")
	var conflict *domain.ErrConflict
	assert.True(t, errors.As(err, &conflict))
}

func TestLocalAuthenticator_ShortPassword(t *testing.T) {
	_, err := newLocalAuth(persist.NewMemory(), time.Hour).Register(context.Background(), "Ada", "ada@example.com", "123")

	var valErr *domain.ErrValidation
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "password", valErr.Field)
}

func TestLocalAuthenticator_ExpiredToken(t *testing.T) {
	auth := newLocalAuth(persist.NewMemory(), -time.Minute)
	session, err := auth.Register(context.Background(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = auth.ValidateAccessToken(session.Token)
	var unauth *domain.ErrUnauthorized
	require.True(t, errors.As(err, &unauth))
	assert.Equal(t, "session expired", unauth.Message)
}

func TestLocalAuthenticator_ForeignToken(t *testing.T) {
	other := service.NewLocalAuthenticator(persist.NewMemory(), "another-secret", time.Hour, zap.NewNop())
	session, err := other.Register(context.Background(), "Eve", "eve@example.com", "secret1")
	require.NoError(t, err)

	_, err = newLocalAuth(persist.NewMemory(), time.Hour).ValidateAccessToken(session.Token)
	assert.Error(t, err)
}
