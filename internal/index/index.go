// Package index derives read-only lookup structures from the current
// Library contents. Indexes are recomputed on demand rather than
// maintained incrementally: the Commons is small and a full pass is
// cheaper than staleness tracking.
package index

import (
	"sort"
	"strings"

	"wikai/internal/logging"
	"wikai/internal/schema"
	"wikai/internal/store"
)

// DefaultDomain is used for patterns without a domain.
const DefaultDomain = "General"

// relatedTopN bounds the related-pattern result list.
const relatedTopN = 10

// snippetLen bounds axiom snippets in index entries.
const snippetLen = 80

// Ref is a lightweight pattern summary held in index entries.
type Ref struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// RelatedMatch is one scored entry in a related-patterns result.
type RelatedMatch struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Builder computes derived indexes over a Library.
type Builder struct {
	library *store.Library
}

// NewBuilder returns a Builder over the given library.
func NewBuilder(library *store.Library) *Builder {
	return &Builder{library: library}
}

// TagIndex maps each lowercased tag to the patterns carrying it, in
// Library order. Case is folded for lookup; original casing survives on
// the patterns themselves for display.
func (b *Builder) TagIndex() map[string][]Ref {
	timer := logging.StartTimer(logging.CategoryIndex, "Builder.TagIndex")
	defer timer.Stop()

	idx := make(map[string][]Ref)
	for _, p := range b.library.ListAll() {
		seen := make(map[string]bool, len(p.Tags))
		for _, tag := range p.Tags {
			key := strings.ToLower(tag)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			idx[key] = append(idx[key], ref(p))
		}
	}
	return idx
}

// DomainIndex maps each domain to its patterns, in Library order.
// Patterns without a domain collect under DefaultDomain.
func (b *Builder) DomainIndex() map[string][]Ref {
	timer := logging.StartTimer(logging.CategoryIndex, "Builder.DomainIndex")
	defer timer.Stop()

	idx := make(map[string][]Ref)
	for _, p := range b.library.ListAll() {
		domain := p.Domain
		if domain == "" {
			domain = DefaultDomain
		}
		idx[domain] = append(idx[domain], ref(p))
	}
	return idx
}

// Related ranks other patterns by relevance to the given one: +10 for an
// explicit link in either direction, +2 per shared tag (case-folded),
// +1 for matching domain, +1 for matching knowledge type. Zero-score
// patterns are excluded, ties keep Library order, and the result is
// truncated to the top ten.
//
// The score is recomputed per query, never persisted: relationships shift
// whenever any pattern's tags, domain or explicit links change.
func (b *Builder) Related(id string) ([]RelatedMatch, error) {
	timer := logging.StartTimer(logging.CategoryIndex, "Builder.Related")
	defer timer.Stop()

	subject, err := b.library.Get(id)
	if err != nil {
		return nil, err
	}

	subjectTags := tagSet(subject.Tags)
	subjectLinks := stringSet(subject.RelatedEntries)

	var matches []RelatedMatch
	for _, p := range b.library.ListAll() {
		if p.ID == subject.ID {
			continue
		}

		score := 0
		var reasons []string

		if subjectLinks[p.ID] || stringSet(p.RelatedEntries)[subject.ID] {
			score += 10
			reasons = append(reasons, "explicitly linked")
		}

		shared := 0
		for tag := range tagSet(p.Tags) {
			if subjectTags[tag] {
				shared++
			}
		}
		if shared > 0 {
			score += 2 * shared
			reasons = append(reasons, "shared tags")
		}

		if subject.Domain != "" && p.Domain == subject.Domain {
			score++
			reasons = append(reasons, "same domain")
		}
		if subject.KnowledgeType != "" && p.KnowledgeType == subject.KnowledgeType {
			score++
			reasons = append(reasons, "same knowledge type")
		}

		if score == 0 {
			continue
		}
		matches = append(matches, RelatedMatch{
			ID:      p.ID,
			Title:   p.Title,
			Score:   score,
			Reasons: reasons,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > relatedTopN {
		matches = matches[:relatedTopN]
	}

	logging.Index("Related(%s): %d matches", id, len(matches))
	return matches, nil
}

func ref(p *schema.Pattern) Ref {
	snippet := p.Axiom
	if len(snippet) > snippetLen {
		snippet = snippet[:snippetLen]
	}
	return Ref{ID: p.ID, Title: p.Title, Snippet: snippet}
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t != "" {
			set[strings.ToLower(t)] = true
		}
	}
	return set
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
