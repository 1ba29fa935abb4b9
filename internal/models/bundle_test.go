package models

import "testing"

func TestBundleWithCopies(t *testing.T) {
	base := NewContextBundle("AAPL")
	next := base.With("fundamental_analysis", "strong balance sheet")

	if _, ok := base["fundamental_analysis"]; ok {
		t.Fatalf("With mutated the original bundle")
	}
	if next.Get("ticker") != "AAPL" {
		t.Fatalf("derived bundle lost ticker: %q", next.Get("ticker"))
	}
	if next.Get("fundamental_analysis") != "strong balance sheet" {
		t.Fatalf("derived bundle missing new entry")
	}
}

func TestBundleWithOddPairsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on odd pair count")
		}
	}()
	NewContextBundle("AAPL").With("only-a-key")
}

func TestBundleMerge(t *testing.T) {
	a := NewContextBundle("AAPL").With("k1", "v1")
	b := ContextBundle{"k1": "override", "k2": "v2"}

	merged := a.Merge(b)
	if merged.Get("k1") != "override" {
		t.Fatalf("merge must prefer other's values, got %q", merged.Get("k1"))
	}
	if merged.Get("k2") != "v2" || merged.Get("ticker") != "AAPL" {
		t.Fatalf("merge lost entries: %v", merged)
	}
	if a.Get("k1") != "v1" {
		t.Fatalf("merge mutated the receiver")
	}
}

func TestBundleFormatDeterministic(t *testing.T) {
	bundle := ContextBundle{
		"ticker":  "AAPL",
		"beta":    "second",
		"alpha":   "first",
		"skipped": "   ",
	}

	want := "alpha: first\nbeta: second\nticker: AAPL"
	for i := 0; i < 10; i++ {
		if got := bundle.Format(); got != want {
			t.Fatalf("Format() = %q, want %q", got, want)
		}
	}
}
