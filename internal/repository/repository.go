package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"ugcmigrate/internal/blobstore"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
)

var (
	// ErrNotFound is returned when a path does not resolve to the expected node.
	ErrNotFound = errors.New("node not found")
	// ErrNodeExists is returned when a write targets an occupied path.
	ErrNodeExists = errors.New("node already exists")
	// ErrNotFolder is returned when a folder operation meets a file node.
	ErrNotFolder = errors.New("node is not a folder")
)

// Repository is the SQLite-backed content tree. Node metadata lives in the
// database; file bytes live in the configured blob store.
type Repository struct {
	db    *sql.DB
	blobs blobstore.BlobStore
	now   func() time.Time
}

// Info summarizes repository contents.
type Info struct {
	SchemaVersion int   `json:"schema_version"`
	FolderCount   int   `json:"folder_count"`
	FileCount     int   `json:"file_count"`
	BlobCount     int   `json:"blob_count"`
	BlobBytes     int64 `json:"blob_bytes"`
	ScoreCount    int   `json:"score_count"`
}

// Open opens the SQLite database and applies pending migrations.
func Open(path string, blobs blobstore.BlobStore) (*Repository, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := configureDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db, blobs: blobs, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Backend names the blob store backing file nodes.
func (r *Repository) Backend() string {
	return r.blobs.Backend()
}

// Info returns node, blob and score counts plus the schema version.
func (r *Repository) Info(ctx context.Context) (Info, error) {
	var info Info
	version, err := currentVersion(r.db)
	if err != nil {
		return info, err
	}
	info.SchemaVersion = version

	err = r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN node_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN node_type = ? THEN 1 ELSE 0 END), 0)
		FROM nodes`, nodeTypeFolder, nodeTypeFile).Scan(&info.FolderCount, &info.FileCount)
	if err != nil {
		return info, err
	}
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM blobs").Scan(&info.BlobCount, &info.BlobBytes)
	if err != nil {
		return info, err
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scores").Scan(&info.ScoreCount); err != nil {
		return info, err
	}
	return info, nil
}

// OpenRaw opens the database without running migrations, for inspection.
func OpenRaw(path string) (*sql.DB, error) {
	return openDB(path)
}

func openDB(path string) (*sql.DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	return sql.Open("sqlite", dsn)
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
