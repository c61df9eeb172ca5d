// Package gallery holds the labeled reference embeddings for known people
// and the derived per-label centroids used by identification.
package gallery

import (
	"context"
	"sort"
)

// Source provides the labeled reference embeddings, e.g. the enrollment
// database. The gallery recomputes centroids on every load.
type Source interface {
	Load(ctx context.Context) (map[string][]Embedding, error)
}

type entry struct {
	embeddings []Embedding
	centroid   Embedding
}

// Gallery maps canonical labels to their enrolled embeddings and centroids.
// It is read-heavy: Replace swaps the whole content atomically from the
// caller's point of view, reads never mutate.
type Gallery struct {
	entries map[string]*entry
	labels  []string
}

// New creates an empty gallery.
func New() *Gallery {
	return &Gallery{entries: make(map[string]*entry)}
}

// Replace swaps the gallery content with the given label -> embeddings map.
// Labels with no embeddings are dropped; centroids are recomputed.
func (g *Gallery) Replace(known map[string][]Embedding) {
	entries := make(map[string]*entry, len(known))
	labels := make([]string, 0, len(known))

	for label, vecs := range known {
		if len(vecs) == 0 {
			continue
		}
		entries[label] = &entry{
			embeddings: vecs,
			centroid:   Centroid(vecs),
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)

	g.entries = entries
	g.labels = labels
}

// Refresh reloads the gallery content from the source.
func (g *Gallery) Refresh(ctx context.Context, src Source) error {
	known, err := src.Load(ctx)
	if err != nil {
		return err
	}
	g.Replace(known)
	return nil
}

// Labels returns all known labels in sorted order.
func (g *Gallery) Labels() []string {
	return g.labels
}

// Size returns the number of known labels.
func (g *Gallery) Size() int {
	return len(g.entries)
}

// Embeddings returns the enrolled embeddings for a label, nil if unknown.
func (g *Gallery) Embeddings(label string) []Embedding {
	e, ok := g.entries[label]
	if !ok {
		return nil
	}
	return e.embeddings
}

// CentroidOf returns the centroid for a label, nil if unknown.
func (g *Gallery) CentroidOf(label string) Embedding {
	e, ok := g.entries[label]
	if !ok {
		return nil
	}
	return e.centroid
}
