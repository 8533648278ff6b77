package query

import (
	"testing"

	"wikai/internal/schema"
	"wikai/internal/store"
)

func seedLibrary(t *testing.T) *store.Library {
	t.Helper()
	lib, err := store.NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}

	patterns := []schema.Pattern{
		{
			Title:   "Gradient clipping",
			Axiom:   "Bounded updates stabilize training",
			Domain:  "A",
			Tags:    []string{"x", "y"},
			Origin:  "trainer",
			Metrics: schema.Metrics{StabilityScore: 0.9, Transferability: 0.5},
		},
		{
			Title:   "Curriculum ordering",
			Axiom:   "Easy-first ordering speeds convergence",
			Domain:  "A",
			Tags:    []string{"y"},
			Origin:  "trainer",
			Metrics: schema.Metrics{StabilityScore: 0.6, Transferability: 0.9},
		},
		{
			Title:     "Tit for tat",
			Axiom:     "Reciprocity sustains cooperation",
			Domain:    "B",
			Tags:      []string{"x"},
			Origin:    "simulator",
			Mechanism: map[string]any{"strategy": "mirror the previous move"},
			Metrics:   schema.Metrics{StabilityScore: 0.95, Transferability: 0.8},
		},
	}
	for _, p := range patterns {
		if _, err := lib.Capture(p); err != nil {
			t.Fatalf("Capture(%s) error = %v", p.Title, err)
		}
	}
	return lib
}

func TestSearchFilterComposition(t *testing.T) {
	e := NewEngine(seedLibrary(t))

	// domain=A AND tag=x: only the gradient clipping pattern satisfies both.
	results := e.Search(Filters{Domain: "A", Tags: []string{"x"}})
	if len(results) != 1 {
		t.Fatalf("Search(domain=A, tags=[x]) = %d results, want 1", len(results))
	}
	if results[0].Title != "Gradient clipping" {
		t.Fatalf("result = %s, want Gradient clipping", results[0].Title)
	}
}

func TestSearchNoFiltersMatchesAll(t *testing.T) {
	e := NewEngine(seedLibrary(t))
	if got := len(e.Search(Filters{})); got != 3 {
		t.Fatalf("Search(Filters{}) = %d results, want 3", got)
	}
}

func TestSearchMinStability(t *testing.T) {
	e := NewEngine(seedLibrary(t))
	results := e.Search(Filters{MinStability: 0.8})
	if len(results) != 2 {
		t.Fatalf("Search(min_stability=0.8) = %d results, want 2", len(results))
	}
	for _, p := range results {
		if p.Metrics.StabilityScore < 0.8 {
			t.Errorf("result %s has stability %v below the floor", p.ID, p.Metrics.StabilityScore)
		}
	}
}

func TestSearchTextReachesMechanism(t *testing.T) {
	e := NewEngine(seedLibrary(t))
	results := e.Search(Filters{Text: "previous move"})
	if len(results) != 1 || results[0].Title != "Tit for tat" {
		t.Fatalf("Search(text in mechanism) = %+v, want only Tit for tat", len(results))
	}
}

func TestSearchLimitPreservesOrder(t *testing.T) {
	e := NewEngine(seedLibrary(t))
	limited := e.Search(Filters{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("Search(limit=2) = %d results, want 2", len(limited))
	}
	all := e.Search(Filters{})
	if limited[0].ID != all[0].ID || limited[1].ID != all[1].ID {
		t.Fatal("limited results do not preserve newest-first order")
	}
}

func TestTagsCounts(t *testing.T) {
	e := NewEngine(seedLibrary(t))
	counts := e.Tags()
	if counts["x"] != 2 {
		t.Errorf("Tags()[x] = %d, want 2", counts["x"])
	}
	if counts["y"] != 2 {
		t.Errorf("Tags()[y] = %d, want 2", counts["y"])
	}
}

func TestStats(t *testing.T) {
	e := NewEngine(seedLibrary(t))
	stats := e.GetStats()

	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.TagsCount != 2 {
		t.Errorf("TagsCount = %d, want 2", stats.TagsCount)
	}
	if stats.DomainsCount != 2 {
		t.Errorf("DomainsCount = %d, want 2", stats.DomainsCount)
	}
	wantAvg := (0.9 + 0.6 + 0.95) / 3
	if diff := stats.AvgStability - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AvgStability = %v, want %v", stats.AvgStability, wantAvg)
	}
	if len(stats.Origins) != 2 {
		t.Errorf("Origins = %v, want 2 distinct origins", stats.Origins)
	}
}

func TestStatsOnEmptyStore(t *testing.T) {
	lib, err := store.NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	stats := NewEngine(lib).GetStats()
	if stats.Total != 0 || stats.AvgStability != 0 {
		t.Fatalf("empty stats = %+v, want zero values", stats)
	}
	if stats.Origins == nil {
		t.Fatal("Origins = nil, want empty slice")
	}
}
