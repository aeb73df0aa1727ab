// Package store persists users and server descriptors. Two backends exist:
// postgres for deployments and an in-memory store for development and tests.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/DSroD/PyCon/internal/model"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// ServerStore persists server descriptors.
type ServerStore interface {
	All(ctx context.Context) ([]model.Server, error)
	Get(ctx context.Context, uid uuid.UUID) (*model.Server, error)
	Upsert(ctx context.Context, server model.Server) error
	Delete(ctx context.Context, uid uuid.UUID) error
}

// UserStore persists user accounts.
type UserStore interface {
	All(ctx context.Context) ([]model.UserView, error)
	Get(ctx context.Context, username string) (*model.User, error)
	Upsert(ctx context.Context, user model.User) error
	Delete(ctx context.Context, username string) error
}
