package schema

import (
	"strings"
	"testing"
)

func TestContentHashDeterminism(t *testing.T) {
	mech := map[string]any{
		"thesis":     "hardness",
		"antithesis": "softness",
		"synthesis":  map[string]any{"result": "persistence", "steps": 3},
	}

	h1 := ContentHash("Iron Wood Protocol", "Hardness + Softness = Persistence", mech)
	h2 := ContentHash("Iron Wood Protocol", "Hardness + Softness = Persistence", mech)
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 16 {
		t.Fatalf("hash length = %d, want 16", len(h1))
	}

	// Same triple expressed through a freshly built map must hash the same.
	h3 := ContentHash("Iron Wood Protocol", "Hardness + Softness = Persistence", map[string]any{
		"synthesis":  map[string]any{"steps": 3, "result": "persistence"},
		"antithesis": "softness",
		"thesis":     "hardness",
	})
	if h1 != h3 {
		t.Fatalf("hash depends on map construction order: %s != %s", h1, h3)
	}

	if ContentHash("Other Title", "Hardness + Softness = Persistence", mech) == h1 {
		t.Fatal("different title produced identical hash")
	}
	if ContentHash("Iron Wood Protocol", "Hardness + Softness = Persistence", nil) == h1 {
		t.Fatal("different mechanism produced identical hash")
	}
}

func TestCandidateHashIgnoresMechanism(t *testing.T) {
	a := CandidateHash("T", "Ax")
	b := CandidateHash("T", "Ax")
	if a != b {
		t.Fatalf("candidate hash not deterministic: %s != %s", a, b)
	}
	if CandidateHash("T", "Bx") == a {
		t.Fatal("different axiom produced identical candidate hash")
	}
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		valid   bool
	}{
		{"Empty", Pattern{}, false},
		{"TitleOnly", Pattern{Title: "x"}, false},
		{"AxiomOnly", Pattern{Axiom: "x"}, false},
		{"Both", Pattern{Title: "x", Axiom: "y"}, true},
		{"TitleTooLong", Pattern{Title: strings.Repeat("t", MaxTitleLen+1), Axiom: "y"}, false},
		{"EmptyTag", Pattern{Title: "x", Axiom: "y", Tags: []string{"ok", ""}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(&tt.pattern)
			if res.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (errors: %v)", res.Valid, tt.valid, res.Errors)
			}
			if !tt.valid && res.Err() == nil {
				t.Fatal("Err() = nil for invalid pattern")
			}
		})
	}
}

func TestValidateSoftConstraintsWarnOnly(t *testing.T) {
	p := Pattern{
		Title: "x",
		Axiom: strings.Repeat("a", MaxAxiomLen+1),
		ID:    "NOT_AN_ID",
		Metrics: Metrics{
			StabilityScore:  1.7,
			Transferability: -0.2,
			ValidationCount: -1,
		},
	}
	res := Validate(&p)
	if !res.Valid {
		t.Fatalf("soft violations rejected the pattern: %v", res.Errors)
	}
	if len(res.Warnings) < 4 {
		t.Fatalf("warnings = %v, want at least 4", res.Warnings)
	}
	if res.Err() != nil {
		t.Fatalf("Err() = %v for valid pattern", res.Err())
	}
}

func TestSuggestTags(t *testing.T) {
	tags := SuggestTags("Cooperative Equilibrium", "Mutual benefit exceeds individual gain", "")
	found := false
	for _, tag := range tags {
		if tag == "cooperation" {
			found = true
		}
	}
	if !found {
		t.Fatalf("SuggestTags = %v, want to contain cooperation", tags)
	}

	if got := SuggestTags("zzz", "qqq", ""); len(got) != 0 {
		t.Fatalf("SuggestTags on unrelated text = %v, want empty", got)
	}
}
