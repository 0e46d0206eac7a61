package imgrewrite

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// StagingPath is the folder that receives imported assets.
const StagingPath = "/content/usergenerated/tmp/social/images"

// FetchResult is the part of an HTTP response the importer needs.
// Body is only populated for 2xx responses.
type FetchResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher issues a GET for url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// AssetRepository is the slice of the content repository used for imports.
type AssetRepository interface {
	EnsureFolder(ctx context.Context, folderPath string) error
	WriteBinary(ctx context.Context, folder, name string, data []byte, mimeType string) (string, error)
}

// AssetImporter downloads assets and stores them under StagingPath.
type AssetImporter struct {
	fetcher Fetcher
	repo    AssetRepository
	logger  *slog.Logger
	newName func() string
}

var _ Importer = (*AssetImporter)(nil)

// NewAssetImporter builds an importer. A nil logger uses slog.Default().
func NewAssetImporter(fetcher Fetcher, repo AssetRepository, logger *slog.Logger) *AssetImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetImporter{
		fetcher: fetcher,
		repo:    repo,
		logger:  logger,
		newName: uuid.NewString,
	}
}

// ImportAsset fetches url and writes it to the staging folder as a new file
// node named by a random UUID plus an extension derived from the declared
// content type. Every failure is logged and reported as ok=false.
func (a *AssetImporter) ImportAsset(ctx context.Context, url string) (string, bool) {
	if !shouldImport(url) {
		return "", false
	}
	if a == nil || a.fetcher == nil || a.repo == nil {
		return "", false
	}

	target := strings.ReplaceAll(url, " ", "%20")
	result, err := a.fetcher.Fetch(ctx, target)
	if err != nil {
		a.logger.Error("asset fetch failed", "url", target, "error", err)
		return "", false
	}
	if result == nil {
		a.logger.Error("asset fetch returned no response", "url", target)
		return "", false
	}
	if !isSuccessStatus(result.StatusCode) {
		a.logger.Warn("asset fetch unsuccessful", "url", target, "status", result.StatusCode)
		return "", false
	}

	name := a.newName() + FileExtension(result.ContentType)
	if err := a.repo.EnsureFolder(ctx, StagingPath); err != nil {
		a.logger.Error("ensure staging folder failed", "path", StagingPath, "error", err)
		return "", false
	}
	nodePath, err := a.repo.WriteBinary(ctx, StagingPath, name, result.Body, result.ContentType)
	if err != nil {
		a.logger.Error("asset write failed", "path", path.Join(StagingPath, name), "error", err)
		return "", false
	}

	a.logger.Info("asset imported", "url", target, "path", nodePath, "bytes", len(result.Body))
	return nodePath, true
}

func shouldImport(url string) bool {
	if url == "" {
		return false
	}
	if strings.HasPrefix(url, StagingPath) {
		return false
	}
	return !strings.HasPrefix(url, "file://")
}

func isSuccessStatus(code int) bool {
	return code >= http.StatusOK && code <= 299
}
