package embedding

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestMockEmbedder_deterministicUnitVectors(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Save 20% of income")
	b, _ := e.Embed(ctx, "Save 20% of income")
	if len(a) != 16 {
		t.Fatalf("len = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should give same embedding")
		}
	}
	if n := math.Sqrt(dot(a, a)); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", n)
	}
	blank, _ := e.Embed(ctx, "   ")
	if n := math.Sqrt(dot(blank, blank)); math.Abs(n-1) > 1e-5 {
		t.Errorf("blank text norm = %f, want 1", n)
	}
}

func TestMockEmbedder_sharedWordsAreCloser(t *testing.T) {
	e := NewMockEmbedder(512)
	ctx := context.Background()
	query, _ := e.Embed(ctx, "how much of my income should I save")
	related, _ := e.Embed(ctx, "Save part of my income.")
	unrelated, _ := e.Embed(ctx, "Credit card interest compounds daily.")
	if dot(query, related) <= dot(query, unrelated) {
		t.Errorf("related %.3f should exceed unrelated %.3f", dot(query, related), dot(query, unrelated))
	}
}

func TestMockEmbedder_defaultDimensions(t *testing.T) {
	if NewMockEmbedder(0).Dimensions() != 384 {
		t.Error("expected default 384 dimensions")
	}
}

func TestHashString(t *testing.T) {
	if HashString("income") != HashString("income") {
		t.Error("hash should be deterministic")
	}
	if HashString("income") == HashString("budget") {
		t.Error("different words should hash differently")
	}
	if HashString("a very long string that overflows the accumulator many times over") < 0 {
		t.Error("hash should be non-negative")
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "how much of my income should I save")
	}
}
