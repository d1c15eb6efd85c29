// Package repo stores OAuth installations in Postgres.
package repo

import (
	"context"
	"errors"
	"fmt"

	"jira-insights-bot/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Installation = models.Installation

var ErrNotConfigured = errors.New("database pool is not initialized")

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Store struct {
	db querier
}

// Open connects to databaseURL and makes sure the installations table exists.
// The caller owns the returned pool and closes it on shutdown.
func Open(ctx context.Context, databaseURL string) (*Store, *pgxpool.Pool, error) {
	dbPool, dbConnectionError := pgxpool.New(ctx, databaseURL)
	if dbConnectionError != nil {
		return nil, nil, fmt.Errorf("connect: %w", dbConnectionError)
	}

	// create the table before the first OAuth callback can arrive
	store := NewStore(dbPool)
	if migrateError := store.Migrate(ctx); migrateError != nil {
		dbPool.Close()
		return nil, nil, migrateError
	}
	return store, dbPool, nil
}

func NewStore(db querier) *Store {
	return &Store{db: db}
}

const schema = `
	CREATE TABLE IF NOT EXISTS installations (
		user_id      TEXT PRIMARY KEY,
		team_id      TEXT NOT NULL DEFAULT '',
		installed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}

	_, migrateError := s.db.Exec(ctx, schema)
	if migrateError != nil {
		return fmt.Errorf("migrate installations: %w", migrateError)
	}
	return nil
}

// Save records an installation. It reports false when the user was already installed.
func (s *Store) Save(ctx context.Context, userID, teamID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrNotConfigured
	}

	// the primary key turns a repeat install into a no-op, so one statement
	// both checks and saves the user
	query := `
		INSERT INTO installations (user_id, team_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`

	commandTag, saveInstallationError := s.db.Exec(ctx, query, userID, teamID)
	if saveInstallationError != nil {
		return false, fmt.Errorf("save installation %s: %w", userID, saveInstallationError)
	}

	// zero affected rows means the user was already registered
	return commandTag.RowsAffected() > 0, nil
}

// List returns every installation, oldest first.
func (s *Store) List(ctx context.Context) ([]Installation, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}

	query := `SELECT user_id, team_id, installed_at FROM installations ORDER BY installed_at`

	rows, dbQueryError := s.db.Query(ctx, query)
	if dbQueryError != nil {
		return nil, fmt.Errorf("list installations: %w", dbQueryError)
	}
	defer rows.Close()

	var installations []Installation
	for rows.Next() {
		var installation Installation
		if scanError := rows.Scan(&installation.UserID, &installation.TeamID, &installation.InstalledAt); scanError != nil {
			return nil, scanError
		}
		installations = append(installations, installation)
	}
	return installations, rows.Err()
}
