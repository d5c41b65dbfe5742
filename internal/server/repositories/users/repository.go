// Package users stores accounts and their role memberships.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	// Create assigns an ID to user and inserts it together with user.Roles.
	// A taken username yields common.ErrUserAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, userName string) (*models.User, error)
	AssignRole(ctx context.Context, userID string, role models.Role) error
	Delete(ctx context.Context, id string) error
	EnsureRole(ctx context.Context, role models.Role) error
}

// Store hands out repositories and runs units of work against them.
type Store interface {
	Repository() Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}
