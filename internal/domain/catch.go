package domain

import "time"

// Catch is a single logged catch record. PhotoPath holds the relative
// storage key of the uploaded photo, never the bytes themselves. FolderID
// is nil for catches that are not filed into a folder.
type Catch struct {
	ID          int64
	UserID      int64
	Species     string
	Size        string
	Weight      string
	CatchMethod string
	Location    string
	Date        string
	PhotoPath   string
	FolderID    *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Folder groups a user's catches. Deleting a folder unfiles its catches,
// it never deletes them.
type Folder struct {
	ID        int64
	UserID    int64
	Name      string
	CreatedAt time.Time
}
