package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"intratel/internal/domain"
	"intratel/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.LabRepository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.LabRepository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS labs (
		name TEXT PRIMARY KEY,
		description TEXT,
		snapshot JSON NOT NULL,
		link_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_labs_updated ON labs(updated_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// GetLab retrieves a lab by name
func (r *Repository) GetLab(ctx context.Context, name string) (*domain.Lab, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, description, snapshot, created_at, updated_at
		FROM labs WHERE name = ?
	`, name)

	var lr labRow
	if err := row.Scan(lr.scanArgs()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repository.ErrLabNotFound, name)
		}
		return nil, fmt.Errorf("failed to get lab: %w", err)
	}

	return lr.toDomain()
}

// ListLabs returns all labs, most recently updated first
func (r *Repository) ListLabs(ctx context.Context) ([]domain.Lab, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, description, snapshot, created_at, updated_at
		FROM labs ORDER BY updated_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labs: %w", err)
	}
	defer rows.Close()

	labs := make([]domain.Lab, 0)
	for rows.Next() {
		var lr labRow
		if err := rows.Scan(lr.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan lab: %w", err)
		}
		lab, err := lr.toDomain()
		if err != nil {
			return nil, err
		}
		labs = append(labs, *lab)
	}

	return labs, rows.Err()
}

// SaveLab creates or replaces a lab. CreatedAt survives replacement.
func (r *Repository) SaveLab(ctx context.Context, lab *domain.Lab) error {
	if lab.Name == "" {
		return errors.New("lab name is required")
	}
	if lab.Snapshot == nil {
		return errors.New("lab snapshot is required")
	}

	snapshot, err := marshalToNull(lab.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if lab.CreatedAt.IsZero() {
		lab.CreatedAt = now
	}
	lab.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO labs (name, description, snapshot, link_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			snapshot = excluded.snapshot,
			link_count = excluded.link_count,
			updated_at = excluded.updated_at
	`, lab.Name, stringToNull(lab.Description), snapshot, lab.LinkCount(), lab.CreatedAt, lab.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save lab: %w", err)
	}

	return nil
}

// DeleteLab removes a lab
func (r *Repository) DeleteLab(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM labs WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete lab: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete lab: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", repository.ErrLabNotFound, name)
	}

	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
