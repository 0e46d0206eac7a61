package api

import (
	"time"

	"ugcmigrate/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// RewriteRequest is the payload for POST /v1/rewrite.
type RewriteRequest struct {
	Text    string `json:"text"`
	Include string `json:"include,omitempty"`
}

// Replacement records one rewritten image reference.
type Replacement struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// RewriteResponse is the response from POST /v1/rewrite.
type RewriteResponse struct {
	Text         string        `json:"text"`
	Replacements []Replacement `json:"replacements"`
	Skipped      int           `json:"skipped"`
}

// AssetImportRequest is the payload for POST /v1/assets/import.
type AssetImportRequest struct {
	URL string `json:"url"`
}

// AssetImportResponse is the response from POST /v1/assets/import.
type AssetImportResponse struct {
	Path string `json:"path"`
}

// NodeResponse wraps one content repository node.
type NodeResponse struct {
	models.Node
}

// ScoreImportResponse is the response from the score import endpoint.
type ScoreImportResponse struct {
	Applied    int    `json:"applied"`
	TargetPath string `json:"target_path"`
	RulePath   string `json:"rule_path"`
}

// ScoreResponse wraps one stored score.
type ScoreResponse struct {
	UserID     string    `json:"user_id"`
	TargetPath string    `json:"target_path"`
	RulePath   string    `json:"rule_path"`
	Score      int64     `json:"score"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	DBPath         string `json:"db_path,omitempty"`
	StorageBackend string `json:"storage_backend"`
	SchemaVersion  int    `json:"schema_version"`
	FolderCount    int    `json:"folder_count"`
	FileCount      int    `json:"file_count"`
	BlobCount      int    `json:"blob_count"`
	BlobBytes      int64  `json:"blob_bytes"`
	ScoreCount     int    `json:"score_count"`
}

// BlobGCResponse is the response from POST /v1/admin/gc.
type BlobGCResponse struct {
	CandidateCount int   `json:"candidate_count"`
	DeletedCount   int   `json:"deleted_count"`
	FailedCount    int   `json:"failed_count"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
	DryRun         bool  `json:"dry_run"`
}
