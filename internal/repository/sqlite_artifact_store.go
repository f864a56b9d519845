package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/repository"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS model_artifacts (
	name       TEXT PRIMARY KEY,
	blob       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SQLiteArtifactStore keeps the artifact as one row, replaced inside a
// transaction.
type SQLiteArtifactStore struct {
	db   *sqlx.DB
	name string
}

type artifactRow struct {
	Name      string    `db:"name"`
	Blob      []byte    `db:"blob"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewSQLiteArtifactStore opens (or creates) the database at path.
func NewSQLiteArtifactStore(path, name string) (repository.ArtifactStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteArtifactStore{db: db, name: name}, nil
}

func (s *SQLiteArtifactStore) Put(ctx context.Context, blob []byte) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := artifactRow{Name: s.name, Blob: blob, UpdatedAt: time.Now().UTC()}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO model_artifacts (name, blob, updated_at)
		VALUES (:name, :blob, :updated_at)
		ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

func (s *SQLiteArtifactStore) Get(ctx context.Context) ([]byte, error) {
	var row artifactRow
	err := s.db.GetContext(ctx, &row, `SELECT name, blob, updated_at FROM model_artifacts WHERE name = ?`, s.name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite artifact %s: %w", s.name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select artifact: %w", err)
	}
	return row.Blob, nil
}

func (s *SQLiteArtifactStore) Close() error { return s.db.Close() }
