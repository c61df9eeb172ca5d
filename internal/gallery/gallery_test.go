package gallery

import (
	"math"
	"testing"
)

func TestEuclidean_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Embedding
		expected float64
	}{
		{"identical", Embedding{1, 2, 3}, Embedding{1, 2, 3}, 0},
		{"unit apart", Embedding{0, 0}, Embedding{1, 0}, 1},
		{"pythagorean", Embedding{0, 0}, Embedding{3, 4}, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Euclidean(tc.a, tc.b)
			if math.Abs(result-tc.expected) > 1e-9 {
				t.Errorf("Euclidean(%v, %v) = %f; want %f", tc.a, tc.b, result, tc.expected)
			}
		})
	}
}

func TestEuclidean_MismatchedLengths(t *testing.T) {
	result := Euclidean(Embedding{1, 2}, Embedding{1, 2, 3})
	if !math.IsInf(result, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %f", result)
	}
}

func TestEuclidean_Empty(t *testing.T) {
	if !math.IsInf(Euclidean(nil, nil), 1) {
		t.Error("expected +Inf for empty vectors")
	}
}

func TestCentroid_Mean(t *testing.T) {
	vs := []Embedding{
		{0, 0, 0},
		{2, 4, 6},
	}

	c := Centroid(vs)
	expected := Embedding{1, 2, 3}

	for i := range expected {
		if c[i] != expected[i] {
			t.Errorf("centroid[%d] = %f; want %f", i, c[i], expected[i])
		}
	}
}

func TestCentroid_SingleVector(t *testing.T) {
	c := Centroid([]Embedding{{0.5, -0.5}})
	if c[0] != 0.5 || c[1] != -0.5 {
		t.Errorf("centroid of single vector should equal the vector, got %v", c)
	}
}

func TestCentroid_Empty(t *testing.T) {
	if Centroid(nil) != nil {
		t.Error("expected nil centroid for empty input")
	}
}

func TestGallery_ReplaceRecomputesCentroids(t *testing.T) {
	g := New()
	g.Replace(map[string][]Embedding{
		"alice": {{0, 0}, {2, 2}},
	})

	c := g.CentroidOf("alice")
	if c == nil || c[0] != 1 || c[1] != 1 {
		t.Fatalf("expected centroid [1 1], got %v", c)
	}

	// Enrolling another reference image moves the centroid.
	g.Replace(map[string][]Embedding{
		"alice": {{0, 0}, {2, 2}, {4, 4}},
	})
	c = g.CentroidOf("alice")
	if c == nil || c[0] != 2 || c[1] != 2 {
		t.Fatalf("expected centroid [2 2] after replace, got %v", c)
	}
}

func TestGallery_DropsEmptyLabels(t *testing.T) {
	g := New()
	g.Replace(map[string][]Embedding{
		"alice": {{1, 1}},
		"bob":   {},
	})

	if g.Size() != 1 {
		t.Errorf("expected 1 label, got %d", g.Size())
	}
	if g.Embeddings("bob") != nil {
		t.Error("expected no embeddings for label without enrollments")
	}
}

func TestGallery_LabelsSorted(t *testing.T) {
	g := New()
	g.Replace(map[string][]Embedding{
		"carol": {{1}},
		"alice": {{1}},
		"bob":   {{1}},
	})

	labels := g.Labels()
	expected := []string{"alice", "bob", "carol"}
	if len(labels) != len(expected) {
		t.Fatalf("expected %d labels, got %d", len(expected), len(labels))
	}
	for i := range expected {
		if labels[i] != expected[i] {
			t.Errorf("labels[%d] = %q; want %q", i, labels[i], expected[i])
		}
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Alice", "alice"},
		{"spaces", "Jan Novak", "jan_novak"},
		{"diacritics", "Jiří Červenka", "jiri_cervenka"},
		{"extra whitespace", "  Jan   Novak  ", "jan_novak"},
		{"punctuation stripped", "O'Brien, Pat!", "obrien_pat"},
		{"kept characters", "anna-marie.k_2", "anna-marie.k_2"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := CanonicalName(tc.input)
			if result != tc.expected {
				t.Errorf("CanonicalName(%q) = %q; want %q", tc.input, result, tc.expected)
			}
		})
	}
}
