package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ugcmigrate/internal/models"
)

const (
	blobColumns            = "id, sha256, size_bytes, storage_backend, blob_key, created_at"
	defaultBlobGCBatchSize = 500
)

// BlobGCResult reports one blob garbage-collection pass.
type BlobGCResult struct {
	CandidateCount int   `json:"candidate_count"`
	DeletedCount   int   `json:"deleted_count"`
	FailedCount    int   `json:"failed_count"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
	DryRun         bool  `json:"dry_run"`
}

// GetBlob returns one blob by id, or nil when absent.
func (r *Repository) GetBlob(ctx context.Context, id string) (*models.Blob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, id)
	return scanBlob(row)
}

// ListUnreferencedBlobs returns blobs that no node points at, oldest first.
// A limit of zero lists all of them.
func (r *Repository) ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blobs
		WHERE NOT EXISTS (SELECT 1 FROM nodes WHERE nodes.blob_id = blobs.id)
		ORDER BY created_at ASC, id ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blobs := []models.Blob{}
	for rows.Next() {
		blob, err := scanBlob(rows)
		if err != nil {
			return nil, err
		}
		if blob != nil {
			blobs = append(blobs, *blob)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blobs, nil
}

// GCBlobs reclaims unreferenced blobs in batches of batchSize. Without apply
// it only counts candidates and their bytes.
func (r *Repository) GCBlobs(ctx context.Context, batchSize int, apply bool) (BlobGCResult, error) {
	result := BlobGCResult{DryRun: !apply}
	if batchSize <= 0 {
		batchSize = defaultBlobGCBatchSize
	}

	if !apply {
		err := r.db.QueryRowContext(ctx, `
			SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM blobs
			WHERE NOT EXISTS (SELECT 1 FROM nodes WHERE nodes.blob_id = blobs.id)
		`).Scan(&result.CandidateCount, &result.ReclaimedBytes)
		return result, err
	}

	backend := r.blobs.Backend()
	for {
		blobs, err := r.ListUnreferencedBlobs(ctx, batchSize)
		if err != nil {
			return result, err
		}
		result.CandidateCount += len(blobs)

		deleted := 0
		for _, blob := range blobs {
			if !blob.StoredIn(backend) {
				result.FailedCount++
				continue
			}
			removed, err := r.deleteUnreferencedBlob(ctx, blob)
			if err != nil {
				result.FailedCount++
				continue
			}
			if removed {
				deleted++
				result.DeletedCount++
				result.ReclaimedBytes += blob.SizeBytes
			}
		}
		// Rows that failed stay unreferenced and would come back forever.
		if deleted == 0 {
			return result, nil
		}
	}
}

// deleteUnreferencedBlob drops the blob row and its stored bytes in one
// transaction. A blob that a node started referencing since it was listed
// is left alone and reported as not removed.
func (r *Repository) deleteUnreferencedBlob(ctx context.Context, blob models.Blob) (_ bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM blobs
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM nodes WHERE nodes.blob_id = blobs.id)
	`, blob.ID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, tx.Commit()
	}

	if err = r.blobs.Delete(ctx, blob.BlobKey); err != nil {
		return false, fmt.Errorf("delete blob %s: %w", blob.ID, err)
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func upsertBlobTx(ctx context.Context, tx *sql.Tx, blob *models.Blob) (*models.Blob, error) {
	blob.SHA256 = strings.ToLower(strings.TrimSpace(blob.SHA256))
	blob.BlobKey = strings.TrimSpace(blob.BlobKey)
	if blob.SHA256 == "" {
		return nil, fmt.Errorf("sha256 is required")
	}
	if blob.BlobKey == "" {
		return nil, fmt.Errorf("blob_key is required")
	}
	if blob.SizeBytes < 0 {
		return nil, fmt.Errorf("size_bytes must be >= 0")
	}

	if strings.TrimSpace(blob.ID) == "" {
		blob.ID = NewBlobID()
	} else if err := ValidateBlobID(blob.ID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO blobs (id, sha256, size_bytes, storage_backend, blob_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, blob.ID, blob.SHA256, blob.SizeBytes, blob.StorageBackend, blob.BlobKey, formatTime(blob.CreatedAt)); err != nil {
		return nil, err
	}

	canonical, err := scanBlob(tx.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE sha256 = ?`, blob.SHA256))
	if err != nil {
		return nil, err
	}
	if canonical == nil {
		return nil, fmt.Errorf("blob not found after upsert")
	}
	return canonical, nil
}

func scanBlob(scanner interface {
	Scan(dest ...any) error
}) (*models.Blob, error) {
	blob := models.Blob{}
	var createdAt string

	err := scanner.Scan(&blob.ID, &blob.SHA256, &blob.SizeBytes, &blob.StorageBackend, &blob.BlobKey, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	blob.CreatedAt = parsedCreated

	return &blob, nil
}
