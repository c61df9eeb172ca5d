// Package unknowns assigns stable identities to faces the gallery does
// not recognize. The baseline identity is the quantized embedding
// fingerprint; with merging enabled, embeddings close to a previously
// seen unknown reuse that unknown's fingerprint so one visitor does not
// fracture into several identities across pose changes.
package unknowns

import (
	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

const mergeIndexMaxNeighbors = 16

// Resolver maps unknown-face embeddings to stable fingerprints. It is
// not goroutine safe; all access happens on the tick loop goroutine.
type Resolver struct {
	mergeDistance float64
	graph         *hnsw.Graph[int64]
	fingerprints  map[int64]string
	nextID        int64
}

// NewResolver creates a resolver. mergeDistance <= 0 disables merging
// and every embedding resolves to its own quantized fingerprint.
func NewResolver(mergeDistance float64) *Resolver {
	r := &Resolver{mergeDistance: mergeDistance}
	if mergeDistance > 0 {
		g := hnsw.NewGraph[int64]()
		g.M = mergeIndexMaxNeighbors
		g.Ml = 1.0 / float64(mergeIndexMaxNeighbors)
		g.Distance = hnsw.EuclideanDistance
		r.graph = g
		r.fingerprints = make(map[int64]string)
	}
	return r
}

// Resolve returns the stable fingerprint for an unknown embedding.
func (r *Resolver) Resolve(emb gallery.Embedding) string {
	if r.graph == nil {
		return fingerprint.Fingerprint(emb)
	}

	if nearest := r.graph.Search(emb, 1); len(nearest) > 0 {
		if gallery.Euclidean(emb, nearest[0].Value) <= r.mergeDistance {
			return r.fingerprints[nearest[0].Key]
		}
	}

	fp := fingerprint.Fingerprint(emb)
	id := r.nextID
	r.nextID++
	r.graph.Add(hnsw.MakeNode(id, emb))
	r.fingerprints[id] = fp
	return fp
}

// Size returns the number of distinct unknowns the resolver tracks.
// Zero with merging disabled.
func (r *Resolver) Size() int {
	return len(r.fingerprints)
}
