package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fishlog/internal/domain"
	"fishlog/internal/repository"
)

const createFishTable = `
CREATE TABLE IF NOT EXISTS fish (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	species TEXT NOT NULL,
	size TEXT NOT NULL,
	weight TEXT NOT NULL,
	catch_method TEXT NOT NULL,
	location TEXT NOT NULL,
	date TEXT NOT NULL,
	photo_path TEXT NOT NULL DEFAULT '',
	folder_id INTEGER NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_fish_user_id ON fish(user_id);
CREATE INDEX IF NOT EXISTS idx_fish_folder_id ON fish(folder_id);
`

type CatchRepository struct {
	db *sql.DB
}

func NewCatchRepository(db *sql.DB) repository.CatchRepository {
	return &CatchRepository{db: db}
}

func (r *CatchRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createFishTable); err != nil {
		return fmt.Errorf("create fish table: %w", err)
	}
	if err := r.ensureFishColumns(ctx); err != nil {
		return err
	}
	return nil
}

// ensureFishColumns upgrades databases created by pre-folder releases,
// which lack the photo_path and folder_id columns.
func (r *CatchRepository) ensureFishColumns(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(fish)`)
	if err != nil {
		return fmt.Errorf("describe fish table: %w", err)
	}
	defer rows.Close()

	columns := map[string]struct{}{}
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan pragma table info: %w", err)
		}
		columns[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pragma table info: %w", err)
	}

	addColumn := func(name, statement string) error {
		if _, exists := columns[name]; exists {
			return nil
		}
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("add column %s: %w", name, err)
		}
		return nil
	}

	if err := addColumn("photo_path", `ALTER TABLE fish ADD COLUMN photo_path TEXT NOT NULL DEFAULT ''`); err != nil {
		return err
	}
	if err := addColumn("folder_id", `ALTER TABLE fish ADD COLUMN folder_id INTEGER NULL`); err != nil {
		return err
	}
	return nil
}

func (r *CatchRepository) Create(ctx context.Context, c *domain.Catch) (int64, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO fish (user_id, species, size, weight, catch_method, location, date, photo_path, folder_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID,
		c.Species,
		c.Size,
		c.Weight,
		c.CatchMethod,
		c.Location,
		c.Date,
		c.PhotoPath,
		nullInt64(c.FolderID),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert catch: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("catch last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

func (r *CatchRepository) Get(ctx context.Context, id int64) (*domain.Catch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, species, size, weight, catch_method, location, date, photo_path, folder_id, created_at, updated_at
FROM fish
WHERE id = ?`,
		id,
	)
	return scanCatch(row)
}

func (r *CatchRepository) ListByOwner(ctx context.Context, ownerID int64, folderID *int64) ([]domain.Catch, error) {
	query := `
SELECT id, user_id, species, size, weight, catch_method, location, date, photo_path, folder_id, created_at, updated_at
FROM fish
WHERE user_id = ?`
	args := []any{ownerID}
	if folderID != nil {
		query += ` AND folder_id = ?`
		args = append(args, *folderID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query catches: %w", err)
	}
	defer rows.Close()

	var catches []domain.Catch
	for rows.Next() {
		c, err := scanCatch(rows)
		if err != nil {
			return nil, err
		}
		catches = append(catches, *c)
	}

	return catches, rows.Err()
}

func (r *CatchRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fish WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete catch: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catch delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("catch %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func scanCatch(scanner interface {
	Scan(dest ...any) error
}) (*domain.Catch, error) {
	var (
		c        domain.Catch
		folderID sql.NullInt64
	)

	if err := scanner.Scan(
		&c.ID,
		&c.UserID,
		&c.Species,
		&c.Size,
		&c.Weight,
		&c.CatchMethod,
		&c.Location,
		&c.Date,
		&c.PhotoPath,
		&folderID,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catch: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan catch: %w", err)
	}

	if folderID.Valid {
		v := folderID.Int64
		c.FolderID = &v
	}
	return &c, nil
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
