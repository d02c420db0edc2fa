package local

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenDelete(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mimeType, err := store.Save(ctx, "user-1", "contract.pdf", strings.NewReader("%PDF-1.7 test body"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("%PDF-1.7 test body")) {
		t.Fatalf("size = %d, want %d", size, len("%PDF-1.7 test body"))
	}
	if mimeType == "" {
		t.Fatalf("expected detected mime type")
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "%PDF-1.7 test body" {
		t.Fatalf("body = %q", body)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, key); err == nil {
		t.Fatalf("expected Open to fail after Delete")
	}

	// Deleting again is a no-op.
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestSaveWithKeyOverwrites(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.SaveWithKey(ctx, "signed/doc-1.pdf", "application/pdf", strings.NewReader("v1")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if _, err := store.SaveWithKey(ctx, "signed/doc-1.pdf", "application/pdf", strings.NewReader("v2")); err != nil {
		t.Fatalf("SaveWithKey overwrite: %v", err)
	}

	rc, err := store.Open(ctx, "signed/doc-1.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "v2" {
		t.Fatalf("body = %q, want v2", body)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../outside"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if err := store.Delete(context.Background(), "../outside"); err == nil {
		t.Fatalf("expected traversal delete to be rejected")
	}
}
