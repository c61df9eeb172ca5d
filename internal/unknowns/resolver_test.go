package unknowns

import (
	"testing"

	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

func TestResolveWithoutMerging(t *testing.T) {
	r := NewResolver(0)
	emb := gallery.Embedding{0.123, -0.456, 0.789}

	got := r.Resolve(emb)
	if want := fingerprint.Fingerprint(emb); got != want {
		t.Errorf("Resolve = %q, want plain fingerprint %q", got, want)
	}
	if r.Size() != 0 {
		t.Errorf("Size() = %d with merging disabled", r.Size())
	}
}

func TestResolveMergesNearbyEmbeddings(t *testing.T) {
	r := NewResolver(0.3)

	first := r.Resolve(gallery.Embedding{0.50, 0.50, 0.50})
	// Same visitor, slightly different pose. Quantized fingerprints
	// differ but the distance is inside the merge radius.
	second := r.Resolve(gallery.Embedding{0.55, 0.45, 0.52})
	if second != first {
		t.Errorf("nearby embedding resolved to %q, want merged %q", second, first)
	}
	if r.Size() != 1 {
		t.Errorf("Size() = %d, want 1", r.Size())
	}
}

func TestResolveKeepsDistantEmbeddingsApart(t *testing.T) {
	r := NewResolver(0.3)

	first := r.Resolve(gallery.Embedding{0.50, 0.50, 0.50})
	other := r.Resolve(gallery.Embedding{-0.80, 0.10, -0.30})
	if other == first {
		t.Error("distant embeddings merged")
	}
	if r.Size() != 2 {
		t.Errorf("Size() = %d, want 2", r.Size())
	}

	// A revisit near the second visitor resolves to the second identity.
	again := r.Resolve(gallery.Embedding{-0.78, 0.12, -0.28})
	if again != other {
		t.Errorf("revisit resolved to %q, want %q", again, other)
	}
}
