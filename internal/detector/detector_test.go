package detector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNextTick(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/frame/latest" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"captured_at_ms": 1767258000000,
			"faces_count": 2,
			"faces": [
				{"face_index": 0, "embedding": [0.1, 0.2], "bbox": [10, 20, 110, 140], "det_score": 0.98},
				{"face_index": 1, "embedding": [0.3, 0.4], "bbox": [200, 50, 260, 120], "det_score": 0.91}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	tick, err := c.NextTick(context.Background())
	if err != nil {
		t.Fatalf("NextTick failed: %v", err)
	}

	if len(tick.Detections) != 2 {
		t.Fatalf("got %d detections, want 2", len(tick.Detections))
	}
	if tick.CapturedAt.UnixMilli() != 1767258000000 {
		t.Errorf("CapturedAt = %v", tick.CapturedAt)
	}

	d := tick.Detections[0]
	if d.Box.Width() != 100 || d.Box.Height() != 120 {
		t.Errorf("box = %vx%v, want 100x120", d.Box.Width(), d.Box.Height())
	}
	if d.Score != 0.98 {
		t.Errorf("score = %v", d.Score)
	}
}

func TestNextTickDropsMalformedDetections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"captured_at_ms": 1767258000000,
			"faces_count": 3,
			"faces": [
				{"face_index": 0, "embedding": [], "bbox": [10, 20, 110, 140], "det_score": 0.98},
				{"face_index": 1, "embedding": [0.3, 0.4], "bbox": [200, 50], "det_score": 0.91},
				{"face_index": 2, "embedding": [0.5, 0.6], "bbox": [5, 5, 60, 70], "det_score": 0.88}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	tick, err := c.NextTick(context.Background())
	if err != nil {
		t.Fatalf("NextTick failed: %v", err)
	}
	if len(tick.Detections) != 1 {
		t.Fatalf("got %d detections, want 1 after dropping malformed", len(tick.Detections))
	}
	if tick.Detections[0].Index != 2 {
		t.Errorf("kept detection %d, want 2", tick.Detections[0].Index)
	}
}

func TestNextTickServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.NextTick(context.Background()); err == nil {
		t.Fatal("expected error on 503")
	}
}
