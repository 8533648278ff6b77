package observer

import "strconv"

// Field extraction is deliberately tolerant: the observer is bolted onto
// host systems it does not control, so it tries an ordered list of field
// paths and takes the first that yields a value. The rule tables below
// make that fallback order auditable without reading the state machine.

// numberRule is one step in a first-match-wins extraction chain.
type numberRule struct {
	path      []string
	transform func(float64) float64
}

// stabilityRules is the fallback chain for a stability scalar. Absence of
// every field yields 0.0.
var stabilityRules = []numberRule{
	{path: []string{"stability"}},
	{path: []string{"stability_score"}},
	{path: []string{"metrics", "stability"}},
	{path: []string{"metrics", "stability_score"}},
	{path: []string{"health_score"}},
	{path: []string{"coherence"}},
	{path: []string{"components", "coherence"}},
	{path: []string{"components", "stability"}},
	{path: []string{"loss"}, transform: func(loss float64) float64 { return 1.0 - loss }},
}

// fitnessRules is the fallback chain for a fitness delta.
var fitnessRules = []numberRule{
	{path: []string{"fitness_delta"}},
	{path: []string{"fitness"}},
	{path: []string{"metrics", "fitness_delta"}},
	{path: []string{"metrics", "fitness"}},
	{path: []string{"components", "adaptability"}},
}

// extractNumber evaluates the rule chain against event data.
func extractNumber(data map[string]any, rules []numberRule) float64 {
	for _, rule := range rules {
		value, ok := lookupPath(data, rule.path)
		if !ok {
			continue
		}
		n, ok := asFloat(value)
		if !ok {
			continue
		}
		if rule.transform != nil {
			n = rule.transform(n)
		}
		return n
	}
	return 0.0
}

func lookupPath(data map[string]any, path []string) (any, bool) {
	var current any = data
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// asFloat coerces the numeric shapes JSON decoding and direct Go callers
// produce, including numeric strings.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// getString returns a string field or the empty string.
func getString(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// getStringSlice returns a string-list field, skipping non-string items.
func getStringSlice(data map[string]any, key string) []string {
	raw, ok := data[key]
	if !ok {
		return nil
	}
	switch items := raw.(type) {
	case []string:
		return items
	case []any:
		var out []string
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// getMap returns a mapping field or nil.
func getMap(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok {
		return m
	}
	return nil
}
