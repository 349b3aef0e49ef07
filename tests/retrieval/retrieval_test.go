package retrieval_test

import (
	"context"
	"testing"

	"github.com/jmcalloway/claimward/internal/retrieval"
)

func demoIndex() *retrieval.DemoGateway {
	g := retrieval.NewDemoGateway(nil)
	g.Index("hairdryer-standard", []retrieval.Section{
		{Name: "Coverage", Content: "covers heating element failure and motor failure for ninety days"},
		{Name: "Exclusions", Content: "commercial salon use voids the warranty"},
		{Name: "Claim Requirements", Content: "a valid claim requires the serial number and proof of purchase"},
	})
	return g
}

func collect(t *testing.T, g retrieval.Gateway, policyID, query string, limit int) []retrieval.Excerpt {
	t.Helper()
	seq, err := g.Search(context.Background(), policyID, query, limit)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var excerpts []retrieval.Excerpt
	for e := range seq {
		excerpts = append(excerpts, e)
	}
	return excerpts
}

func TestSearchRanksByOverlap(t *testing.T) {
	g := demoIndex()

	excerpts := collect(t, g, "hairdryer-standard", "heating element failure", 0)
	if len(excerpts) == 0 {
		t.Fatal("no excerpts returned")
	}

	if excerpts[0].Section != "Coverage" {
		t.Errorf("top excerpt: got %s, want Coverage", excerpts[0].Section)
	}
	for i := 1; i < len(excerpts); i++ {
		if excerpts[i].Score > excerpts[i-1].Score {
			t.Errorf("excerpt %d outranks its predecessor: %f > %f",
				i, excerpts[i].Score, excerpts[i-1].Score)
		}
	}
}

func TestSearchOmitsZeroOverlap(t *testing.T) {
	g := demoIndex()

	excerpts := collect(t, g, "hairdryer-standard", "zebra xylophone", 0)
	if len(excerpts) != 0 {
		t.Errorf("unrelated query returned %d excerpts", len(excerpts))
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	g := demoIndex()

	excerpts := collect(t, g, "hairdryer-standard", "warranty claim serial failure", 1)
	if len(excerpts) != 1 {
		t.Fatalf("excerpts: got %d, want 1", len(excerpts))
	}
}

func TestSearchUnknownPolicy(t *testing.T) {
	g := demoIndex()

	excerpts := collect(t, g, "no-such-policy", "heating element", 0)
	if len(excerpts) != 0 {
		t.Errorf("unknown policy returned %d excerpts", len(excerpts))
	}
}

func TestSequenceIsOneShot(t *testing.T) {
	g := demoIndex()

	seq, err := g.Search(context.Background(), "hairdryer-standard", "heating element failure", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	first := 0
	for range seq {
		first++
	}
	if first == 0 {
		t.Fatal("first pass yielded nothing")
	}

	second := 0
	for range seq {
		second++
	}
	if second != 0 {
		t.Errorf("second pass yielded %d excerpts, want 0", second)
	}
}

func TestIndexReplacesSections(t *testing.T) {
	g := demoIndex()

	g.Index("hairdryer-standard", []retrieval.Section{
		{Name: "Revised Coverage", Content: "heating element coverage extended"},
	})

	excerpts := collect(t, g, "hairdryer-standard", "heating element", 0)
	if len(excerpts) != 1 {
		t.Fatalf("excerpts after reindex: got %d, want 1", len(excerpts))
	}
	if excerpts[0].Section != "Revised Coverage" {
		t.Errorf("section: got %s, want Revised Coverage", excerpts[0].Section)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	g := demoIndex()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Search(ctx, "hairdryer-standard", "heating", 0); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
