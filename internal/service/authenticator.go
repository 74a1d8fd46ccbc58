package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

// CredentialsKey holds the local credential table in the snapshot store.
const CredentialsKey = "auth-credentials"

const (
	bcryptCost        = 12
	minPasswordLength = 6
)

type credentialTable struct {
	Credentials map[string]domain.Credential `json:"credentials"`
}

// LocalAuthenticator verifies credentials kept in the snapshot store and
// issues signed access tokens. It is used when no remote auth API is set.
type LocalAuthenticator struct {
	snapshots port.SnapshotStore
	jwtSecret []byte
	accessTTL time.Duration
	cost      int
	logger    *zap.Logger

	mu sync.Mutex
}

// NewLocalAuthenticator creates a new local authenticator.
func NewLocalAuthenticator(snapshots port.SnapshotStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *LocalAuthenticator {
	return &LocalAuthenticator{
		snapshots: snapshots,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		cost:      bcryptCost,
		logger:    logger,
	}
}

// ============================================================
// Register
// ============================================================

func (a *LocalAuthenticator) Register(ctx context.Context, name, email, password string) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "LocalAuthenticator.Register")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	if len(password) < minPasswordLength {
		return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("password must have at least %d characters", minPasswordLength)}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	table, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := table.Credentials[email]; exists {
		return nil, &domain.ErrConflict{Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := domain.Credential{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	table.Credentials[email] = cred
	if err := persist.Save(ctx, a.snapshots, CredentialsKey, table); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", cred.UserID))
	a.logger.Info("user registered", zap.String("user_id", cred.UserID))
	return a.session(cred)
}

// ============================================================
// Login
// ============================================================

func (a *LocalAuthenticator) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "LocalAuthenticator.Login")
	defer span.End()

	a.mu.Lock()
	table, err := a.load(ctx)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	cred, ok := table.Credentials[normalizeEmail(email)]
	if !ok {
		a.logger.Warn("login: unknown email")
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn("login: wrong password", zap.String("user_id", cred.UserID))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	span.SetAttributes(attribute.String("user.id", cred.UserID))
	return a.session(cred)
}

// ============================================================
// Tokens
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken checks signature, expiry and token type.
func (a *LocalAuthenticator) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "session expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

func (a *LocalAuthenticator) session(cred domain.Credential) (*domain.Session, error) {
	token, err := a.signAccessToken(cred.UserID, cred.Email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &domain.Session{
		User: domain.User{
			ID:        cred.UserID,
			Email:     cred.Email,
			Name:      cred.Name,
			CreatedAt: cred.CreatedAt.Format(time.RFC3339),
		},
		Token: token,
	}, nil
}

func (a *LocalAuthenticator) signAccessToken(userID, email string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:   userID,
		Email: email,
		Type:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
			Issuer:    "fialo-bfa",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *LocalAuthenticator) load(ctx context.Context) (credentialTable, error) {
	table := credentialTable{Credentials: map[string]domain.Credential{}}
	if err := persist.Load(ctx, a.snapshots, CredentialsKey, &table); err != nil {
		return credentialTable{}, fmt.Errorf("load credentials: %w", err)
	}
	if table.Credentials == nil {
		table.Credentials = map[string]domain.Credential{}
	}
	return table, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
