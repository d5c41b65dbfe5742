package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertUserQuery = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*password_hash,\s*is_active\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+created_at\s*$`
	assignRoleQuery = `(?s)^INSERT\s+INTO\s+users_roles\s*\(user_id,\s*role_name\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s+DO\s+NOTHING\s*$`
	byIDQuery       = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*is_active,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	byNameQuery     = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*is_active,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
	rolesQuery      = `(?s)^SELECT\s+role_name\s+FROM\s+users_roles\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+role_name\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	mock.ExpectQuery(insertUserQuery).
		WithArgs(sqlmock.AnyArg(), "alice", "hash", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec(assignRoleQuery).
		WithArgs(sqlmock.AnyArg(), "USER").
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{UserName: "alice", PasswordHash: "hash", IsActive: true, Roles: []models.Role{models.RoleUser}}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)

	_, err = uuid.Parse(got.ID)
	assert.NoError(t, err, "id must be a uuid")
	assert.True(t, got.CreatedAt.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateUsername(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserQuery).
		WithArgs(sqlmock.AnyArg(), "alice", "hash", true).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: "hash", IsActive: true})
	assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserQuery).
		WithArgs(sqlmock.AnyArg(), "alice", "hash", true).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: "hash", IsActive: true})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byNameQuery).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_active", "created_at"}).
			AddRow("u-1", "alice", "hash", true, time.Now()))
	mock.ExpectQuery(rolesQuery).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role_name"}).AddRow("ADMIN").AddRow("USER"))

	got, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, []models.Role{models.RoleAdmin, models.RoleUser}, got.Roles)
}

func TestFindByID_NoRoles(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byIDQuery).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_active", "created_at"}).
			AddRow("u-1", "alice", "hash", false, time.Now()))
	mock.ExpectQuery(rolesQuery).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role_name"}))

	got, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.Roles)
	assert.Empty(t, got.Roles)
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byIDQuery).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByID_RolesError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byIDQuery).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_active", "created_at"}).
			AddRow("u-1", "alice", "hash", true, time.Now()))
	mock.ExpectQuery(rolesQuery).WithArgs("u-1").WillReturnError(errors.New("db err"))

	_, err := repo.FindByID(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestAssignRole_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(assignRoleQuery).WithArgs("u-1", "ADMIN").WillReturnError(errors.New("fk violation"))

	err := repo.AssignRole(context.Background(), "u-1", models.RoleAdmin)
	assert.ErrorContains(t, err, "fk violation")
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "u-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureRole(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+roles\s*\(name\)\s*VALUES\s*\(\$1\)\s*ON\s+CONFLICT\s+DO\s+NOTHING\s*$`
	mock.ExpectExec(q).WithArgs("USER").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("ADMIN").WillReturnError(errors.New("db err"))

	require.NoError(t, repo.EnsureRole(context.Background(), models.RoleUser))
	assert.Error(t, repo.EnsureRole(context.Background(), models.RoleAdmin))
}
