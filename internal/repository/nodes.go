package repository

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"ugcmigrate/internal/models"
)

const nodeColumns = "path, parent_path, name, node_type, referenceable, node_uuid, mime_type, media_type_source, blob_id, size_bytes, created_at, last_modified"

var (
	nodeTypeFolder = string(models.NodeTypeFolder)
	nodeTypeFile   = string(models.NodeTypeFile)
)

// Content is an opened file node. Callers must close Body.
type Content struct {
	Node models.Node
	Body io.ReadCloser
}

// CleanPath normalizes an absolute repository path.
func CleanPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("path is required")
	}
	if !strings.HasPrefix(raw, "/") {
		return "", fmt.Errorf("path must be absolute: %s", raw)
	}
	return path.Clean(raw), nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("node name is required")
	}
	if name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("invalid node name: %s", name)
	}
	return nil
}

// EnsureFolder creates every missing segment of folderPath as a folder node.
// Existing folders are reused; an existing file on the chain is an error.
func (r *Repository) EnsureFolder(ctx context.Context, folderPath string) (err error) {
	cleaned, err := CleanPath(folderPath)
	if err != nil {
		return err
	}
	if cleaned == "/" {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	current := "/"
	for _, segment := range strings.Split(strings.TrimPrefix(cleaned, "/"), "/") {
		parent := current
		current = path.Join(current, segment)
		if err = ensureFolderTx(ctx, tx, parent, segment, current, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func ensureFolderTx(ctx context.Context, tx *sql.Tx, parent, name, nodePath string, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO nodes (path, parent_path, name, node_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, nodePath, parent, name, nodeTypeFolder, formatTime(now)); err != nil {
		return err
	}

	var nodeType string
	if err := tx.QueryRowContext(ctx, "SELECT node_type FROM nodes WHERE path = ?", nodePath).Scan(&nodeType); err != nil {
		return err
	}
	if nodeType != nodeTypeFolder {
		return fmt.Errorf("%w: %s", ErrNotFolder, nodePath)
	}
	return nil
}

// WriteBinary stores data as a new referenceable file node named name under
// folder and returns the node path. An empty mimeType is sniffed from data.
// The folder must already exist.
func (r *Repository) WriteBinary(ctx context.Context, folder, name string, data []byte, mimeType string) (_ string, err error) {
	folderPath, err := CleanPath(folder)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return "", err
	}
	nodePath := path.Join(folderPath, name)

	mimeType = strings.TrimSpace(mimeType)
	source := models.MediaTypeSourceDeclared
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
		source = models.MediaTypeSourceSniffed
	}

	put, err := r.blobs.Put(ctx, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}

	now := r.now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if folderPath != "/" {
		parent, scanErr := scanNode(tx.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE path = ?`, folderPath))
		if scanErr != nil {
			err = scanErr
			return "", err
		}
		if parent == nil {
			err = fmt.Errorf("%w: %s", ErrNotFound, folderPath)
			return "", err
		}
		if !parent.IsFolder() {
			err = fmt.Errorf("%w: %s", ErrNotFolder, folderPath)
			return "", err
		}
	}

	exists, err := nodeExistsTx(ctx, tx, nodePath)
	if err != nil {
		return "", err
	}
	if exists {
		err = fmt.Errorf("%w: %s", ErrNodeExists, nodePath)
		return "", err
	}

	blob, err := upsertBlobTx(ctx, tx, &models.Blob{
		SHA256:         put.SHA256,
		SizeBytes:      put.SizeBytes,
		StorageBackend: r.blobs.Backend(),
		BlobKey:        put.BlobKey,
		CreatedAt:      now,
	})
	if err != nil {
		return "", err
	}
	if blob.StoredIn(r.blobs.Backend()) {
		if err = r.ensureStored(ctx, blob, data); err != nil {
			return "", err
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (
			path, parent_path, name, node_type, referenceable, node_uuid, mime_type,
			media_type_source, blob_id, size_bytes, created_at, last_modified
		) VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?)
	`,
		nodePath,
		folderPath,
		name,
		nodeTypeFile,
		uuid.NewString(),
		nullIfEmpty(mimeType),
		string(source),
		blob.ID,
		put.SizeBytes,
		formatTime(now),
		nullTime(&now),
	); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return nodePath, nil
}

// ensureStored puts data again when its object is gone. GCBlobs may drop an
// unreferenced row and its object between Put and the write transaction;
// once the blob row is written here, GC cannot delete it until commit.
func (r *Repository) ensureStored(ctx context.Context, blob *models.Blob, data []byte) error {
	ok, err := r.blobs.Exists(ctx, blob.BlobKey)
	if err != nil || ok {
		return err
	}
	put, err := r.blobs.Put(ctx, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("restore blob: %w", err)
	}
	if put.BlobKey != blob.BlobKey {
		return fmt.Errorf("restore blob: stored as %s, row has %s", put.BlobKey, blob.BlobKey)
	}
	return nil
}

// GetNode returns the node at nodePath, or nil when it does not exist.
func (r *Repository) GetNode(ctx context.Context, nodePath string) (*models.Node, error) {
	cleaned, err := CleanPath(nodePath)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE path = ?`, cleaned)
	return scanNode(row)
}

// ListChildren lists the direct children of parentPath ordered by name.
func (r *Repository) ListChildren(ctx context.Context, parentPath string) ([]models.Node, error) {
	cleaned, err := CleanPath(parentPath)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE parent_path = ? ORDER BY name ASC`, cleaned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := []models.Node{}
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, *node)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// OpenContent opens the bytes of the file node at nodePath.
func (r *Repository) OpenContent(ctx context.Context, nodePath string) (*Content, error) {
	node, err := r.GetNode(ctx, nodePath)
	if err != nil {
		return nil, err
	}
	if node == nil || !node.IsFile() || node.BlobID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nodePath)
	}

	blob, err := r.GetBlob(ctx, node.BlobID)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("blob %s missing for %s", node.BlobID, node.Path)
	}

	body, err := r.blobs.Open(ctx, blob.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return &Content{Node: *node, Body: body}, nil
}

func nodeExistsTx(ctx context.Context, tx *sql.Tx, nodePath string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM nodes WHERE path = ? LIMIT 1", nodePath).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanNode(scanner interface {
	Scan(dest ...any) error
}) (*models.Node, error) {
	node := models.Node{}

	var referenceable int
	var nodeUUID, mimeType, mediaTypeSource, blobID sql.NullString
	var createdAt string
	var lastModified sql.NullString

	err := scanner.Scan(
		&node.Path,
		&node.ParentPath,
		&node.Name,
		&node.Type,
		&referenceable,
		&nodeUUID,
		&mimeType,
		&mediaTypeSource,
		&blobID,
		&node.SizeBytes,
		&createdAt,
		&lastModified,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	nodeType, err := models.ParseNodeType(node.Type)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", node.Path, err)
	}
	node.Type = string(nodeType)
	node.Referenceable = referenceable != 0
	node.UUID = nodeUUID.String
	node.MimeType = mimeType.String
	if mediaTypeSource.Valid {
		source, err := models.ParseMediaTypeSource(mediaTypeSource.String)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Path, err)
		}
		node.MediaTypeSource = string(source)
	}
	node.BlobID = blobID.String

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	node.CreatedAt = parsedCreated

	if lastModified.Valid {
		parsed, err := parseTime(lastModified.String)
		if err != nil {
			return nil, err
		}
		node.LastModified = &parsed
	}

	return &node, nil
}
