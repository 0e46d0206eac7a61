package models

import "time"

// Blob is stored image content, shared by every file node with the same
// sha256 digest.
type Blob struct {
	ID             string    `json:"id"`
	SHA256         string    `json:"sha256"`
	SizeBytes      int64     `json:"size_bytes"`
	StorageBackend string    `json:"storage_backend"`
	BlobKey        string    `json:"blob_key"`
	CreatedAt      time.Time `json:"created_at"`
}

// StoredIn reports whether the blob's bytes live in the named backend.
// Rows written before a storage.backend switch point at the old backend.
func (b Blob) StoredIn(backend string) bool {
	return b.StorageBackend == backend
}
