package snapshot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 15, 30, 0, time.UTC)
	name := objectName("deadbeefcafe0123", at)

	if !strings.HasPrefix(name, "deadbeef_20260301T091530_") {
		t.Errorf("name = %q", name)
	}
	if !strings.HasSuffix(name, ".jpg") {
		t.Errorf("name = %q", name)
	}
	if second := objectName("deadbeefcafe0123", at); second == name {
		t.Error("two uploads at the same instant collided")
	}
}

func TestBucketUpload(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q", r.Method)
		}
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	b, err := NewBucket(srv.URL, "secret", time.Second)
	if err != nil {
		t.Fatalf("NewBucket failed: %v", err)
	}

	at := time.Date(2026, 3, 1, 9, 15, 30, 0, time.UTC)
	ref, err := b.Upload(context.Background(), "deadbeefcafe0123", at, []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if gotPath != "/"+ref {
		t.Errorf("uploaded to %q, ref %q", gotPath, ref)
	}
	if string(gotBody) != "jpeg-bytes" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestBucketUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "full", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	b, err := NewBucket(srv.URL, "secret", time.Second)
	if err != nil {
		t.Fatalf("NewBucket failed: %v", err)
	}
	if _, err := b.Upload(context.Background(), "deadbeef", time.Now(), []byte("x")); err == nil {
		t.Fatal("expected error on 507")
	}
}

func TestDirUpload(t *testing.T) {
	root := filepath.Join(t.TempDir(), "snapshots")
	d, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}

	ref, err := d.Upload(context.Background(), "deadbeefcafe0123", time.Now(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, ref))
	if err != nil {
		t.Fatalf("could not read snapshot: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("content = %q", data)
	}
}
