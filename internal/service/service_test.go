package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"fishlog/internal/domain"
	"fishlog/internal/repository"
	"fishlog/internal/repository/sqlite"
)

type testRepos struct {
	db       *sql.DB
	users    repository.UserRepository
	catches  repository.CatchRepository
	folders  repository.FolderRepository
	sessions repository.SessionRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "fishlog.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r := testRepos{
		db:       db,
		users:    sqlite.NewUserRepository(db),
		catches:  sqlite.NewCatchRepository(db),
		folders:  sqlite.NewFolderRepository(db),
		sessions: sqlite.NewSessionRepository(db),
	}

	ctx := context.Background()
	for name, init := range map[string]func(context.Context) error{
		"users":    r.users.Init,
		"folders":  r.folders.Init,
		"catches":  r.catches.Init,
		"sessions": r.sessions.Init,
	} {
		if err := init(ctx); err != nil {
			t.Fatalf("init %s: %v", name, err)
		}
	}
	return r
}

func (r testRepos) createUser(t *testing.T, username string) int64 {
	t.Helper()

	id, err := r.users.Create(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return id
}

func validCatchInput() CatchInput {
	return CatchInput{
		Species:     "Bass",
		Size:        "12in",
		Weight:      "3lb",
		CatchMethod: "rod",
		Location:    "Lake X",
		Date:        "2024-01-01",
	}
}
