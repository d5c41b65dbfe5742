package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, rec *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (fingerprint, user_id, active, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		string(rec.Fingerprint), rec.UserID, rec.Active, rec.ExpiresAt).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByFingerprint(ctx context.Context, fp tokens.Fingerprint) (*models.RefreshToken, error) {
	query := `
		SELECT fingerprint, user_id, active, expires_at, created_at
		FROM refresh_tokens
		WHERE fingerprint = $1
	`
	rec := &models.RefreshToken{}
	var stored string
	err := r.db.QueryRowContext(ctx, query, string(fp)).
		Scan(&stored, &rec.UserID, &rec.Active, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec.Fingerprint = tokens.Fingerprint(stored)
	return rec, nil
}

// DeleteByFingerprint relies on the row lock taken by DELETE: of two
// transactions deleting the same fingerprint, the second one waits for the
// first and then sees zero affected rows.
func (r *PostgresRepository) DeleteByFingerprint(ctx context.Context, fp tokens.Fingerprint) (bool, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE fingerprint = $1
	`
	res, err := r.db.ExecContext(ctx, query, string(fp))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// PostgresStore is a Store whose units of work are database transactions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Repository() Repository {
	return NewPostgresRepository(s.db)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewPostgresRepository(tx))
	})
}
