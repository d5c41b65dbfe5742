package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// UserCreator creates accounts with explicit roles.
type UserCreator interface {
	CreateUser(ctx context.Context, username, password string, roles []models.Role) (*models.User, error)
}

// Bootstrapper seeds the role table and, when configured, the root account.
type Bootstrapper struct {
	users        users.Store
	creator      UserCreator
	rootUser     string
	rootPassword string
	log          logging.Logger
}

func NewBootstrapper(store users.Store, creator UserCreator, rootUser, rootPassword string, log logging.Logger) *Bootstrapper {
	if log == nil {
		log = logging.Nop{}
	}
	return &Bootstrapper{
		users:        store,
		creator:      creator,
		rootUser:     rootUser,
		rootPassword: rootPassword,
		log:          log.With("module", "bootstrap"),
	}
}

// Run is idempotent: existing roles and an existing root account are left
// untouched.
func (b *Bootstrapper) Run(ctx context.Context) error {
	repo := b.users.Repository()
	for _, role := range models.AllRoles {
		if err := repo.EnsureRole(ctx, role); err != nil {
			return fmt.Errorf("error seeding role %s: %w", role, err)
		}
	}

	if b.rootUser == "" {
		return nil
	}

	_, err := repo.FindByUsername(ctx, b.rootUser)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error searching root user: %w", err)
	}

	u, err := b.creator.CreateUser(ctx, b.rootUser, b.rootPassword, []models.Role{models.RoleUser, models.RoleAdmin})
	if err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			return nil
		}
		return fmt.Errorf("error creating root user: %w", err)
	}
	b.log.Info(ctx, "root user created", "user_id", u.ID, "username", u.UserName)
	return nil
}
