// Package identify turns raw face embeddings into stable identity labels:
// a nearest-centroid decision with margin rejection per frame, followed by
// temporal majority voting over a rolling window per detection slot.
package identify

import (
	"math"
	"sort"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Unknown is the sentinel label for faces that cannot be attributed to a
// gallery identity with enough confidence.
const Unknown = "Unknown"

// Decision is the result of a single-frame identification.
type Decision struct {
	Label  string  // matched label, or Unknown
	Best   float64 // distance to the closest label (+Inf for empty gallery)
	Second float64 // distance to the runner-up (+Inf if fewer than two labels)
}

// Identifier maps a single embedding to its best gallery label.
// It is a pure function over the gallery content and configuration.
type Identifier struct {
	gallery   *gallery.Gallery
	tolerance float64
	gapMargin float64
}

// NewIdentifier creates an identifier against the given gallery.
// tolerance is the absolute distance bound; gapMargin is the minimum
// separation required between the two closest labels.
func NewIdentifier(g *gallery.Gallery, tolerance, gapMargin float64) *Identifier {
	return &Identifier{
		gallery:   g,
		tolerance: tolerance,
		gapMargin: gapMargin,
	}
}

type labelDistance struct {
	label    string
	distance float64
}

// Identify decides the identity of a single embedding.
//
// The per-label distance blends the distance to the label centroid with the
// distance to the closest enrolled reference image, so one contaminated
// enrollment photo cannot dominate the decision. The match is rejected to
// Unknown when the best distance exceeds the tolerance or when the runner-up
// is within the gap margin (the decision would be ambiguous).
func (id *Identifier) Identify(emb gallery.Embedding) Decision {
	labels := id.gallery.Labels()
	if len(labels) == 0 {
		return Decision{Label: Unknown, Best: math.Inf(1), Second: math.Inf(1)}
	}

	dists := make([]labelDistance, 0, len(labels))
	for _, label := range labels {
		dCentroid := gallery.Euclidean(emb, id.gallery.CentroidOf(label))

		dMin := math.Inf(1)
		for _, ref := range id.gallery.Embeddings(label) {
			if d := gallery.Euclidean(emb, ref); d < dMin {
				dMin = d
			}
		}

		dists = append(dists, labelDistance{
			label:    label,
			distance: 0.5*dCentroid + 0.5*dMin,
		})
	}

	// Labels() is sorted, and SliceStable keeps that order for equal
	// distances, so the decision is deterministic.
	sort.SliceStable(dists, func(i, j int) bool {
		return dists[i].distance < dists[j].distance
	})

	best := dists[0].distance
	second := math.Inf(1)
	if len(dists) > 1 {
		second = dists[1].distance
	}

	if best > id.tolerance || (second-best) < id.gapMargin {
		return Decision{Label: Unknown, Best: best, Second: second}
	}
	return Decision{Label: dists[0].label, Best: best, Second: second}
}
