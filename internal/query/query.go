// Package query composes search predicates and aggregates over Library
// contents. No persistent index: every query is a single linear pass over
// the cache, which is cheap at Commons scale.
package query

import (
	"encoding/json"
	"sort"
	"strings"

	"wikai/internal/logging"
	"wikai/internal/schema"
	"wikai/internal/store"
)

// Filters describes one search. Zero values mean "match all" for that
// dimension; the populated predicates AND together.
type Filters struct {
	Text          string
	Domain        string
	KnowledgeType string
	Tags          []string
	MinStability  float64
	Limit         int
}

// Stats is the aggregate view of the Commons.
type Stats struct {
	Total              int      `json:"total_patterns"`
	TagsCount          int      `json:"total_tags"`
	DomainsCount       int      `json:"total_domains"`
	AvgStability       float64  `json:"avg_stability"`
	AvgTransferability float64  `json:"avg_transferability"`
	Origins            []string `json:"origins"`
}

// Engine answers searches and aggregates against a Library.
type Engine struct {
	library *store.Library
}

// NewEngine returns an Engine over the given library.
func NewEngine(library *store.Library) *Engine {
	return &Engine{library: library}
}

// Search returns the patterns matching every populated filter, preserving
// the library's newest-first order. Limit truncates after filtering.
//
// Text matching is a deliberately cheap case-insensitive substring scan
// over title, axiom, abstract, tags and the serialized mechanism;
// substring hits across field boundaries are an accepted limitation.
func (e *Engine) Search(f Filters) []*schema.Pattern {
	timer := logging.StartTimer(logging.CategoryQuery, "Engine.Search")
	defer timer.Stop()

	text := strings.ToLower(f.Text)
	wantTags := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		if t != "" {
			wantTags = append(wantTags, strings.ToLower(t))
		}
	}

	var results []*schema.Pattern
	for _, p := range e.library.ListAll() {
		if f.Domain != "" && p.Domain != f.Domain {
			continue
		}
		if f.KnowledgeType != "" && p.KnowledgeType != f.KnowledgeType {
			continue
		}
		if p.Metrics.StabilityScore < f.MinStability {
			continue
		}
		if len(wantTags) > 0 && !hasAllTags(p, wantTags) {
			continue
		}
		if text != "" && !textMatches(p, text) {
			continue
		}

		results = append(results, p)
		if f.Limit > 0 && len(results) >= f.Limit {
			break
		}
	}

	logging.QueryDebug("Search %+v: %d results", f, len(results))
	return results
}

// Tags returns every tag with its usage count. Counting is
// case-preserving: tags are reported as contributors wrote them.
func (e *Engine) Tags() map[string]int {
	counts := make(map[string]int)
	for _, p := range e.library.ListAll() {
		for _, tag := range p.Tags {
			if tag != "" {
				counts[tag]++
			}
		}
	}
	return counts
}

// GetStats aggregates the whole Commons in one pass. A zero-entry library
// yields the designated empty response rather than dividing by zero.
func (e *Engine) GetStats() Stats {
	timer := logging.StartTimer(logging.CategoryQuery, "Engine.GetStats")
	defer timer.Stop()

	all := e.library.ListAll()
	if len(all) == 0 {
		return Stats{Origins: []string{}}
	}

	var stabilitySum, transferSum float64
	tags := make(map[string]bool)
	domains := make(map[string]bool)
	originSet := make(map[string]bool)

	for _, p := range all {
		stabilitySum += p.Metrics.StabilityScore
		transferSum += p.Metrics.Transferability
		for _, tag := range p.Tags {
			if tag != "" {
				tags[strings.ToLower(tag)] = true
			}
		}
		if p.Domain != "" {
			domains[p.Domain] = true
		}
		if p.Origin != "" {
			originSet[p.Origin] = true
		}
	}

	origins := make([]string, 0, len(originSet))
	for o := range originSet {
		origins = append(origins, o)
	}
	sort.Strings(origins)

	return Stats{
		Total:              len(all),
		TagsCount:          len(tags),
		DomainsCount:       len(domains),
		AvgStability:       stabilitySum / float64(len(all)),
		AvgTransferability: transferSum / float64(len(all)),
		Origins:            origins,
	}
}

func hasAllTags(p *schema.Pattern, want []string) bool {
	have := make(map[string]bool, len(p.Tags))
	for _, t := range p.Tags {
		have[strings.ToLower(t)] = true
	}
	for _, t := range want {
		if !have[t] {
			return false
		}
	}
	return true
}

func textMatches(p *schema.Pattern, text string) bool {
	if strings.Contains(strings.ToLower(p.Title), text) ||
		strings.Contains(strings.ToLower(p.Axiom), text) ||
		strings.Contains(strings.ToLower(p.Abstract), text) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), text) {
			return true
		}
	}
	if len(p.Mechanism) > 0 {
		if data, err := json.Marshal(p.Mechanism); err == nil {
			if strings.Contains(strings.ToLower(string(data)), text) {
				return true
			}
		}
	}
	return false
}
