package index

import (
	"testing"

	"wikai/internal/schema"
	"wikai/internal/store"
)

func seedLibrary(t *testing.T) (*store.Library, map[string]string) {
	t.Helper()
	lib, err := store.NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}

	ids := make(map[string]string)
	capture := func(key string, p schema.Pattern) {
		id, err := lib.Capture(p)
		if err != nil {
			t.Fatalf("Capture(%s) error = %v", key, err)
		}
		ids[key] = id
	}

	capture("anchor", schema.Pattern{
		Title:         "Anchor",
		Axiom:         "Anchor axiom",
		Domain:        "learning",
		KnowledgeType: "heuristic",
		Tags:          []string{"Convergence", "stable"},
	})
	capture("linked", schema.Pattern{
		Title:          "Linked",
		Axiom:          "Linked axiom",
		Domain:         "planning",
		RelatedEntries: []string{ids["anchor"]},
	})
	capture("tagged", schema.Pattern{
		Title:         "Tagged",
		Axiom:         "Tagged axiom",
		Domain:        "learning",
		KnowledgeType: "heuristic",
		Tags:          []string{"convergence", "STABLE"},
	})
	capture("unrelated", schema.Pattern{
		Title:  "Unrelated",
		Axiom:  "Nothing in common",
		Domain: "perception",
		Tags:   []string{"vision"},
	})
	return lib, ids
}

func TestTagIndexCaseFolding(t *testing.T) {
	lib, _ := seedLibrary(t)
	idx := NewBuilder(lib).TagIndex()

	refs, ok := idx["convergence"]
	if !ok {
		t.Fatal("tag index missing lowercased key convergence")
	}
	if len(refs) != 2 {
		t.Fatalf("convergence refs = %d, want 2 (Convergence and convergence fold together)", len(refs))
	}
	if _, ok := idx["Convergence"]; ok {
		t.Fatal("tag index contains unfolded key Convergence")
	}
}

func TestDomainIndexFallback(t *testing.T) {
	lib, err := store.NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	if _, err := lib.Capture(schema.Pattern{Title: "No domain", Axiom: "x"}); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	idx := NewBuilder(lib).DomainIndex()
	if len(idx[DefaultDomain]) != 1 {
		t.Fatalf("DomainIndex[%q] = %d refs, want 1", DefaultDomain, len(idx[DefaultDomain]))
	}
}

func TestRelatedScoring(t *testing.T) {
	lib, ids := seedLibrary(t)
	matches, err := NewBuilder(lib).Related(ids["anchor"])
	if err != nil {
		t.Fatalf("Related() error = %v", err)
	}

	byID := make(map[string]RelatedMatch)
	for _, m := range matches {
		byID[m.ID] = m
	}

	// tagged: 2 shared tags (+4), same domain (+1), same knowledge type (+1).
	if got := byID[ids["tagged"]].Score; got != 6 {
		t.Errorf("tagged score = %d, want 6", got)
	}
	// linked: explicit link in the reverse direction (+10).
	if got := byID[ids["linked"]].Score; got != 10 {
		t.Errorf("linked score = %d, want 10", got)
	}
	// unrelated: zero score, excluded entirely.
	if _, ok := byID[ids["unrelated"]]; ok {
		t.Error("zero-score pattern included in Related results")
	}

	if len(matches) == 0 || matches[0].ID != ids["linked"] {
		t.Errorf("matches[0] = %+v, want the explicitly linked pattern first", matches)
	}
}

func TestRelatedUnknownID(t *testing.T) {
	lib, _ := seedLibrary(t)
	if _, err := NewBuilder(lib).Related("WIKAI_9999"); err == nil {
		t.Fatal("Related() on unknown ID succeeded, want error")
	}
}
