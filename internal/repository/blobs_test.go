package repository

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"ugcmigrate/internal/blobstore"
)

// hookedStore runs afterPut once, after the next Put has stored its bytes.
type hookedStore struct {
	blobstore.BlobStore
	afterPut func()
}

func (s *hookedStore) Put(ctx context.Context, r io.Reader) (blobstore.BlobPutResult, error) {
	result, err := s.BlobStore.Put(ctx, r)
	if hook := s.afterPut; err == nil && hook != nil {
		s.afterPut = nil
		hook()
	}
	return result, err
}

func TestGCBlobsDryRunAndApply(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	if err := repo.EnsureFolder(ctx, "/content"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	nodePath, err := repo.WriteBinary(ctx, "/content", "orphan.png", []byte("orphan"), "image/png")
	if err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	if _, err := repo.WriteBinary(ctx, "/content", "kept.png", []byte("kept"), "image/png"); err != nil {
		t.Fatalf("write kept: %v", err)
	}
	if _, err := repo.db.Exec("DELETE FROM nodes WHERE path = ?", nodePath); err != nil {
		t.Fatalf("detach node: %v", err)
	}

	dry, err := repo.GCBlobs(ctx, 0, false)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !dry.DryRun || dry.CandidateCount != 1 || dry.DeletedCount != 0 || dry.ReclaimedBytes != int64(len("orphan")) {
		t.Fatalf("unexpected dry run result: %#v", dry)
	}

	applied, err := repo.GCBlobs(ctx, 1, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.DryRun || applied.DeletedCount != 1 || applied.FailedCount != 0 {
		t.Fatalf("unexpected apply result: %#v", applied)
	}

	remaining, err := repo.ListUnreferencedBlobs(ctx, 0)
	if err != nil {
		t.Fatalf("list unreferenced: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no unreferenced blobs, got %d", len(remaining))
	}

	info, err := repo.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.BlobCount != 1 {
		t.Fatalf("expected kept blob to survive, got %d blobs", info.BlobCount)
	}
}

func TestGCBlobsSkipsBlobsFromOtherBackend(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	if err := repo.EnsureFolder(ctx, "/content"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	nodePath, err := repo.WriteBinary(ctx, "/content", "moved.png", []byte("moved"), "image/png")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := repo.db.Exec("DELETE FROM nodes WHERE path = ?", nodePath); err != nil {
		t.Fatalf("detach node: %v", err)
	}
	if _, err := repo.db.Exec("UPDATE blobs SET storage_backend = 's3'"); err != nil {
		t.Fatalf("retag blob: %v", err)
	}

	result, err := repo.GCBlobs(ctx, 10, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.CandidateCount != 1 || result.DeletedCount != 0 || result.FailedCount != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestDeleteUnreferencedBlobLeavesReferencedBlob(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	if err := repo.EnsureFolder(ctx, "/content"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	nodePath, err := repo.WriteBinary(ctx, "/content", "live.png", []byte("live"), "image/png")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	node, err := repo.GetNode(ctx, nodePath)
	if err != nil || node == nil {
		t.Fatalf("get node: %v", err)
	}
	blob, err := repo.GetBlob(ctx, node.BlobID)
	if err != nil || blob == nil {
		t.Fatalf("get blob: %v", err)
	}

	removed, err := repo.deleteUnreferencedBlob(ctx, *blob)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed {
		t.Fatal("expected referenced blob to be kept")
	}

	content, err := repo.OpenContent(ctx, nodePath)
	if err != nil {
		t.Fatalf("open content: %v", err)
	}
	_ = content.Body.Close()
}

func TestWriteBinaryRestoresBlobCollectedDuringWrite(t *testing.T) {
	dir := t.TempDir()
	cas, err := blobstore.NewLocalCAS(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	store := &hookedStore{BlobStore: cas}
	repo, err := Open(filepath.Join(dir, "test.db"), store)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	ctx := context.Background()

	if err := repo.EnsureFolder(ctx, "/content"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	orphan, err := repo.WriteBinary(ctx, "/content", "old.png", []byte("shared"), "image/png")
	if err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	if _, err := repo.db.Exec("DELETE FROM nodes WHERE path = ?", orphan); err != nil {
		t.Fatalf("detach node: %v", err)
	}

	store.afterPut = func() {
		result, err := repo.GCBlobs(ctx, 10, true)
		if err != nil {
			t.Fatalf("gc: %v", err)
		}
		if result.DeletedCount != 1 {
			t.Fatalf("expected gc to remove the orphan, got %#v", result)
		}
	}
	nodePath, err := repo.WriteBinary(ctx, "/content", "new.png", []byte("shared"), "image/png")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if store.afterPut != nil {
		t.Fatal("expected gc to run during the write")
	}

	content, err := repo.OpenContent(ctx, nodePath)
	if err != nil {
		t.Fatalf("open content: %v", err)
	}
	defer content.Body.Close()
	data, err := io.ReadAll(content.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "shared" {
		t.Fatalf("expected restored bytes, got %q", string(data))
	}
}
