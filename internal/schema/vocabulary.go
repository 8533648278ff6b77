package schema

import "strings"

// Taxonomy vocabularies. Classification fields draw from these lists but
// are never enforced against them; an unrecognized value is stored as-is.

// Domains is the suggested vocabulary for the domain field.
var Domains = []string{
	"optimization",
	"learning",
	"reasoning",
	"planning",
	"perception",
	"coordination",
	"communication",
	"general",
}

// KnowledgeTypes is the suggested vocabulary for the knowledge_type field.
var KnowledgeTypes = []string{
	"heuristic",
	"invariant",
	"strategy",
	"failure_mode",
	"mechanism",
	"observation",
}

// Modalities is the suggested vocabulary for the modalities field.
var Modalities = []string{
	"text",
	"code",
	"vision",
	"audio",
	"simulation",
	"embodied",
}

// SuggestedTags is the suggested vocabulary for free-text tags.
var SuggestedTags = []string{
	"optimization", "learning", "reasoning", "planning", "perception",
	"cooperation", "competition", "emergence", "convergence", "adaptation",
	"stable", "recursive", "compositional", "hierarchical",
	"discovered", "engineered", "emergent", "imported",
}

// tagKeywords maps a suggested tag to the substrings that imply it.
var tagKeywords = map[string][]string{
	"cooperation":  {"cooperat", "mutual", "together", "share"},
	"competition":  {"compet", "rival", "contest", "versus"},
	"optimization": {"optim", "improve", "enhance", "better"},
	"learning":     {"learn", "train", "adapt"},
	"emergence":    {"emerg", "arise", "spontan", "self-organ"},
	"convergence":  {"converg", "stabil", "lock", "settle"},
	"stable":       {"stable", "persist", "endur", "robust"},
	"recursive":    {"recurs", "self-refer", "fractal", "nested"},
}

// SuggestTags proposes classification tags from a pattern's text content.
// Purely lexical; presentation layers may offer the result as defaults.
func SuggestTags(title, axiom, abstract string) []string {
	text := strings.ToLower(title + " " + axiom + " " + abstract)

	var suggestions []string
	for _, tag := range SuggestedTags {
		keywords, ok := tagKeywords[tag]
		if !ok {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				suggestions = append(suggestions, tag)
				break
			}
		}
	}
	return suggestions
}
