package repository

import (
	"context"

	"ugcmigrate/internal/models"
)

// ContentStore abstracts the node tree used by the importer and the API.
type ContentStore interface {
	EnsureFolder(ctx context.Context, folderPath string) error
	WriteBinary(ctx context.Context, folder, name string, data []byte, mimeType string) (string, error)
	GetNode(ctx context.Context, nodePath string) (*models.Node, error)
	ListChildren(ctx context.Context, parentPath string) ([]models.Node, error)
	OpenContent(ctx context.Context, nodePath string) (*Content, error)
}

// ScoreStore abstracts score persistence.
type ScoreStore interface {
	SaveScore(ctx context.Context, userID, targetPath, rulePath string, score int64) error
	ListScores(ctx context.Context, userID string) ([]models.Score, error)
}

// BlobMaintenance abstracts blob garbage collection.
type BlobMaintenance interface {
	GCBlobs(ctx context.Context, batchSize int, apply bool) (BlobGCResult, error)
}

var (
	_ ContentStore    = (*Repository)(nil)
	_ ScoreStore      = (*Repository)(nil)
	_ BlobMaintenance = (*Repository)(nil)
)
