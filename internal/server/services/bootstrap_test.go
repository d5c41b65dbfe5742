package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapper_SeedsRolesAndRoot(t *testing.T) {
	s, f := newAuthService(t)
	ctx := context.Background()

	b := NewBootstrapper(f.users, s, "root", "rootpassword", logging.Nop{})
	require.NoError(t, b.Run(ctx))

	for _, r := range models.AllRoles {
		assert.True(t, f.users.roles[r], "role %s seeded", r)
	}
	root, err := f.users.FindByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.HasRole(models.RoleAdmin))
	assert.True(t, root.HasRole(models.RoleUser))

	// second run is a no-op
	require.NoError(t, b.Run(ctx))
	assert.Len(t, f.users.byID, 2)
}

func TestBootstrapper_NoRootConfigured(t *testing.T) {
	s, f := newAuthService(t)

	require.NoError(t, NewBootstrapper(f.users, s, "", "", nil).Run(context.Background()))
	assert.Len(t, f.users.byID, 1)
}

func TestBootstrapper_Errors(t *testing.T) {
	s, f := newAuthService(t)
	ctx := context.Background()

	f.users.roleErr = errBoom
	assert.ErrorIs(t, NewBootstrapper(f.users, s, "root", "rootpassword", nil).Run(ctx), errBoom)

	f.users.roleErr = nil
	f.users.findErr = errBoom
	assert.ErrorIs(t, NewBootstrapper(f.users, s, "root", "rootpassword", nil).Run(ctx), errBoom)

	f.users.findErr = nil
	assert.Error(t, NewBootstrapper(f.users, s, "root", "short", nil).Run(ctx))
}
