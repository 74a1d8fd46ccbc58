// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the stores and
// services from concrete persistence and transport implementations.
package port

import (
	"context"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
)

// SnapshotStore is the durable key-value medium the stores persist into.
// Each key holds one JSON snapshot; writes are last-write-wins.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Authenticator verifies credentials and issues a session.
// Rejected credentials are reported as *domain.ErrUnauthorized.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, name, email, password string) (*domain.Session, error)
}

// Simulator calls the simulation/prediction collaborator.
type Simulator interface {
	Simulate(ctx context.Context, req *domain.SimulationRequest) (*domain.SimulationResult, error)
}

// EntryRecorder appends analysis outcomes to the waste entry log.
type EntryRecorder interface {
	AddEntry(ctx context.Context, entry domain.WasteEntry) (string, error)
}

// ProfileReader exposes the current onboarding profile.
type ProfileReader interface {
	Profile() *domain.UserProfile
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
