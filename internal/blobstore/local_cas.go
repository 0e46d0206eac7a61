package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const stagingDirName = "tmp"

// LocalCAS keeps blobs as files under root, one file per digest key.
// Writes are staged in root/tmp and renamed into place.
type LocalCAS struct {
	root string
}

// NewLocalCAS creates the store and its staging directory.
func NewLocalCAS(root string) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, stagingDirName), 0o755); err != nil {
		return nil, err
	}
	return &LocalCAS{root: abs}, nil
}

func (c *LocalCAS) Backend() string {
	return BackendLocalCAS
}

// Root returns the absolute directory holding the tree.
func (c *LocalCAS) Root() string {
	if c == nil {
		return ""
	}
	return c.root
}

// Put stores r under its digest key. Content already present is not
// rewritten.
func (c *LocalCAS) Put(ctx context.Context, r io.Reader) (BlobPutResult, error) {
	if err := c.ready(ctx); err != nil {
		return BlobPutResult{}, err
	}
	staged, result, err := c.stage(r)
	if err != nil {
		return BlobPutResult{}, err
	}
	defer os.Remove(staged)

	dst := filepath.Join(c.root, filepath.FromSlash(result.BlobKey))
	if present(dst) {
		return result, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return BlobPutResult{}, err
	}
	// Losing a rename race to an identical Put still leaves the bytes in place.
	if err := os.Rename(staged, dst); err != nil && !present(dst) {
		return BlobPutResult{}, fmt.Errorf("publish blob %s: %w", result.SHA256, err)
	}
	return result, nil
}

func (c *LocalCAS) stage(r io.Reader) (string, BlobPutResult, error) {
	f, err := os.CreateTemp(filepath.Join(c.root, stagingDirName), "put-*")
	if err != nil {
		return "", BlobPutResult{}, err
	}
	result, err := digestCopy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", BlobPutResult{}, err
	}
	return f.Name(), result, nil
}

func (c *LocalCAS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := c.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Exists reports whether key has a stored file.
func (c *LocalCAS) Exists(ctx context.Context, key string) (bool, error) {
	p, err := c.resolve(ctx, key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Delete removes the file for key. A missing file is not an error.
func (c *LocalCAS) Delete(ctx context.Context, key string) error {
	p, err := c.resolve(ctx, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *LocalCAS) ready(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("blob store is not configured")
	}
	return ctx.Err()
}

func (c *LocalCAS) resolve(ctx context.Context, key string) (string, error) {
	if err := c.ready(ctx); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.root, filepath.FromSlash(clean)), nil
}

func present(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
