// Package fingerprint derives stable identity keys for faces that are not
// in the gallery, so repeated sightings of the same unlabeled person
// collapse to one entity.
//
// The key is a SHA-1 digest of the embedding quantized to two decimal
// places. Quantization absorbs sensor and encoder noise between captures
// of the same physical face. This is a best-effort dedup key, not a
// cryptographic identity: distinct individuals can in rare cases collide
// and would then share one attendance history.
package fingerprint

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// quantScale is the quantization granularity: two decimal places.
const quantScale = 100

// PrefixLen is the number of hex characters used when displaying a
// fingerprint in logs and event records.
const PrefixLen = 8

// Quantize rounds every embedding component to two decimal places.
func Quantize(emb gallery.Embedding) gallery.Embedding {
	out := make(gallery.Embedding, len(emb))
	for i, v := range emb {
		out[i] = float32(math.Round(float64(v)*quantScale) / quantScale)
	}
	return out
}

// Fingerprint computes the hex-encoded digest of the quantized embedding.
// Two captures of the same face that differ only past the second decimal
// place of each component produce the same fingerprint.
func Fingerprint(emb gallery.Embedding) string {
	q := Quantize(emb)

	buf := make([]byte, 4*len(q))
	for i, v := range q {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}

	sum := sha1.Sum(buf)
	return hex.EncodeToString(sum[:])
}

// Prefix returns the short display form of a fingerprint.
func Prefix(fp string) string {
	if len(fp) <= PrefixLen {
		return fp
	}
	return fp[:PrefixLen]
}
