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

const createFoldersTable = `
CREATE TABLE IF NOT EXISTS folders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_folders_user_id ON folders(user_id);
`

type FolderRepository struct {
	db *sql.DB
}

func NewFolderRepository(db *sql.DB) repository.FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createFoldersTable); err != nil {
		return fmt.Errorf("create folders table: %w", err)
	}
	return nil
}

func (r *FolderRepository) Create(ctx context.Context, f *domain.Folder) (int64, error) {
	f.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO folders (user_id, name, created_at)
VALUES (?, ?, ?)`,
		f.UserID,
		f.Name,
		f.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert folder: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("folder last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func (r *FolderRepository) Get(ctx context.Context, id int64) (*domain.Folder, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, name, created_at
FROM folders
WHERE id = ?`,
		id,
	)

	var f domain.Folder
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan folder: %w", err)
	}
	return &f, nil
}

func (r *FolderRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Folder, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, name, created_at
FROM folders
WHERE user_id = ?
ORDER BY id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var folders []domain.Folder
	for rows.Next() {
		var f domain.Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}

	return folders, rows.Err()
}

// DeleteCascade unfiles every catch in the folder and then removes the
// folder row. Both statements run in one transaction so a catch can never
// be observed pointing at a folder that no longer exists.
func (r *FolderRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if _, err := tx.ExecContext(ctx, `UPDATE fish SET folder_id = NULL WHERE folder_id = ?`, id); err != nil {
		return fmt.Errorf("clear folder references: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("folder delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("folder %d: %w", id, repository.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit folder delete: %w", err)
	}
	return nil
}
