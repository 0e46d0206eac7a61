package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	BackendLocalCAS = "local_cas"
	BackendS3       = "s3"

	casAlgorithmPrefix = "sha256"
)

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
}

// BlobStore is the byte-storage abstraction behind repository file nodes.
// Keys are derived from content, so Put of identical bytes is idempotent.
type BlobStore interface {
	Backend() string
	Put(ctx context.Context, r io.Reader) (BlobPutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

var (
	_ BlobStore = (*LocalCAS)(nil)
	_ BlobStore = (*S3Bucket)(nil)
)

// KeyFromDigest returns the storage key for a hex sha256 digest.
func KeyFromDigest(digest string) (string, error) {
	if len(digest) != sha256.Size*2 {
		return "", fmt.Errorf("invalid sha256 digest length: %d", len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("invalid sha256 digest: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s/%s", casAlgorithmPrefix, digest[0:2], digest[2:4], digest), nil
}

// digestCopy streams r into dst and describes the copied bytes.
func digestCopy(dst io.Writer, r io.Reader) (BlobPutResult, error) {
	if r == nil {
		return BlobPutResult{}, fmt.Errorf("reader is required")
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, h), r)
	if err != nil {
		return BlobPutResult{}, err
	}
	digest := hex.EncodeToString(h.Sum(nil))
	key, err := KeyFromDigest(digest)
	if err != nil {
		return BlobPutResult{}, err
	}
	return BlobPutResult{SHA256: digest, SizeBytes: n, BlobKey: key}, nil
}

// cleanKey normalizes a slash-separated key and refuses keys that would
// leave the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return clean, nil
}
