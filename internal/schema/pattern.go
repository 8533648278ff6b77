// Package schema defines the WIKAI pattern model: the record shape every
// contributor writes into the Commons, its taxonomy vocabularies, advisory
// validation, and the content hash used for verification and duplicate
// detection.
package schema

import (
	"regexp"
	"time"
)

const (
	// IDPrefix is the fixed prefix of every pattern ID.
	IDPrefix = "WIKAI_"

	// DefaultOrigin is recorded when a contributor does not identify itself.
	DefaultOrigin = "unknown"

	// DefaultVersion is assigned when the caller supplies no version string.
	DefaultVersion = "1.0.0"

	// MaxTitleLen and MaxAxiomLen bound the two required fields. Title
	// overflow is an error; axiom overflow only warns.
	MaxTitleLen = 200
	MaxAxiomLen = 500
)

// IDPattern matches well-formed pattern IDs (WIKAI_0001, WIKAI_12345, ...).
var IDPattern = regexp.MustCompile(`^WIKAI_[0-9]{4,}$`)

// Metrics holds the numeric measurements attached to a pattern.
// Stability and transferability live on [0,1] by convention; out-of-range
// values are stored as-is and flagged by Validate.
type Metrics struct {
	StabilityScore  float64 `json:"stability_score"`
	FitnessDelta    float64 `json:"fitness_delta"`
	Transferability float64 `json:"transferability"`
	ValidationCount int     `json:"validation_count"`
}

// Pattern is one captured unit of knowledge in the Commons.
//
// The field set is deliberately system-agnostic: any AI system can
// contribute without adapting to WIKAI's internals. Mechanism and
// causation are opaque documents the core never interprets.
type Pattern struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Axiom     string `json:"axiom"`
	Origin    string `json:"origin"`
	Timestamp string `json:"timestamp"`

	Abstract string `json:"abstract,omitempty"`

	// Classification taxonomy. Values are drawn from the vocabularies in
	// vocabulary.go but never enforced against them.
	Domain        string   `json:"domain,omitempty"`
	KnowledgeType string   `json:"knowledge_type,omitempty"`
	Modalities    []string `json:"modalities,omitempty"`

	Mechanism      map[string]any `json:"mechanism"`
	ReasoningChain []string       `json:"reasoning_chain"`
	Causation      any            `json:"causation,omitempty"`

	Metrics Metrics  `json:"metrics"`
	Tags    []string `json:"tags"`

	Prerequisites     []string `json:"prerequisites,omitempty"`
	Dependencies      []string `json:"dependencies,omitempty"`
	Contraindications []string `json:"contraindications,omitempty"`
	RelatedEntries    []string `json:"related_entries,omitempty"`
	CompatibleDomains []string `json:"compatible_domains,omitempty"`

	ContentHash string `json:"content_hash"`
	Version     string `json:"version"`
}

// Time parses the pattern's timestamp. The zero time is returned for
// patterns persisted without one, which sorts them last in ListAll.
func (p *Pattern) Time() time.Time {
	if p.Timestamp == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NowTimestamp returns the capture timestamp format: ISO-8601 UTC.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
