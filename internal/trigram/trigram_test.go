package trigram

import "testing"

func TestNormalize(t *testing.T) {
	got := Normalize("  The   QUICK\n\tfox  ")
	if got != "the quick fox" {
		t.Fatalf("expected %q, got %q", "the quick fox", got)
	}
}

func TestNewIncludesInteriorWhitespace(t *testing.T) {
	v := New("ab cd")
	// "ab cd" → "ab ", "b c", " cd"
	if len(v) != 3 {
		t.Fatalf("expected 3 trigrams, got %d: %v", len(v), v)
	}
	if v["b c"] != 1 {
		t.Fatalf("expected boundary-spanning trigram 'b c', got %v", v)
	}
}

func TestNewShortText(t *testing.T) {
	if v := New("ab"); len(v) != 0 {
		t.Fatalf("expected empty vector for 2-rune text, got %v", v)
	}
	if v := New(""); len(v) != 0 {
		t.Fatalf("expected empty vector for empty text, got %v", v)
	}
}

func TestNewCountsFrequencies(t *testing.T) {
	v := New("aaaa")
	// windows: "aaa", "aaa" → frequency 2
	if v["aaa"] != 2 {
		t.Fatalf("expected frequency 2 for 'aaa', got %v", v)
	}
}

func TestCosineSelfIdentity(t *testing.T) {
	for _, text := range []string{"resonance", "the tide remembers", "共鳴する場"} {
		v := New(text)
		if len(v) == 0 {
			t.Fatalf("expected non-empty vector for %q", text)
		}
		if sim := Cosine(v, v); sim != 1.0 {
			t.Fatalf("Cosine(v, v) = %.6f for %q, want 1.0", sim, text)
		}
	}
}

func TestCosineDisjointIsZero(t *testing.T) {
	a := New("aaaa")
	b := New("zzzz")
	if sim := Cosine(a, b); sim != 0 {
		t.Fatalf("expected exactly 0 for disjoint vectors, got %.6f", sim)
	}
}

func TestCosineEmptyGuard(t *testing.T) {
	if sim := Cosine(New(""), New("resonance")); sim != 0 {
		t.Fatalf("expected 0 for empty vector, got %.6f", sim)
	}
	if sim := Cosine(Vector{}, Vector{}); sim != 0 {
		t.Fatalf("expected 0 for both empty, got %.6f", sim)
	}
}

func TestCosineSymmetric(t *testing.T) {
	a := New("the field hums quietly")
	b := New("the field hums under everything")
	if Cosine(a, b) != Cosine(b, a) {
		t.Fatal("cosine similarity should be symmetric")
	}
}

func TestCosineBounded(t *testing.T) {
	a := New("shared vocabulary shared intent")
	b := New("shared intent shared vocabulary")
	sim := Cosine(a, b)
	if sim <= 0 || sim > 1 {
		t.Fatalf("similarity %.6f out of (0, 1]", sim)
	}
}
