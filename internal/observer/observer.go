// Package observer implements passive pattern detection: a stateful
// classifier that watches a host system's event stream and captures
// patterns into the Library once they prove stable. It is designed to be
// hooked into any AI system without schema agreement, and it must never
// destabilize its host: malformed events degrade to defaults, they do not
// fail.
package observer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"wikai/internal/logging"
	"wikai/internal/schema"
	"wikai/internal/store"
)

// convergenceKeywords classify an event type as a convergence signal.
var convergenceKeywords = []string{
	"converge", "stable", "lock", "crystallize",
	"emerge", "synthesis", "equilibrium", "solution",
}

// Config tunes the observer's promotion gates and bounds.
type Config struct {
	// AutoCapture enables immediate promotion of high-stability events.
	AutoCapture bool

	// StabilityThreshold gates both promotion paths.
	StabilityThreshold float64

	// SystemName is recorded as the origin of captured patterns.
	SystemName string

	// MinObservations is the repeat count required before a
	// sub-threshold candidate may promote on its running maximum.
	MinObservations int

	// HistorySize bounds the rolling event buffer.
	HistorySize int

	// CandidateCap and CandidateMaxIdle bound the pending-candidate set.
	// Candidates past the idle age, or the stalest ones when the set is
	// full, are evicted rather than accumulating forever.
	CandidateCap     int
	CandidateMaxIdle time.Duration

	// OnCapture, when set, is called with (id, title) after each capture.
	OnCapture func(id, title string)
}

// defaults fills unset fields.
func (c *Config) defaults() {
	if c.StabilityThreshold <= 0 {
		c.StabilityThreshold = 0.8
	}
	if c.SystemName == "" {
		c.SystemName = schema.DefaultOrigin
	}
	if c.MinObservations <= 0 {
		c.MinObservations = 3
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 1000
	}
	if c.CandidateCap <= 0 {
		c.CandidateCap = 256
	}
	if c.CandidateMaxIdle <= 0 {
		c.CandidateMaxIdle = 24 * time.Hour
	}
}

// ObservedEvent is one entry in the rolling history buffer.
type ObservedEvent struct {
	ID        string
	Timestamp time.Time
	EventType string
	Data      map[string]any
}

// candidate is a provisional pattern accumulating observations.
type candidate struct {
	data         map[string]any
	observations int
	maxStability float64
	firstSeen    time.Time
	lastSeen     time.Time
}

// CandidateInfo is the externally visible view of a pending candidate.
type CandidateInfo struct {
	Title        string        `json:"title"`
	Observations int           `json:"observations"`
	MaxStability float64       `json:"max_stability"`
	Age          time.Duration `json:"age"`
}

// Stats counts observer activity.
type Stats struct {
	EventsObserved     int `json:"events_observed"`
	PatternsCaptured   int `json:"patterns_captured"`
	CandidatesPromoted int `json:"candidates_promoted"`
	CandidatesEvicted  int `json:"candidates_evicted"`
	CandidatesCount    int `json:"candidates_count"`
	BufferSize         int `json:"buffer_size"`
}

// Observer consumes host events and promotes stable discoveries into the
// Library. Promotion requires either one high-confidence observation or
// repeated moderate-confidence ones: a permanent Store write is hard to
// undo, so the observer prefers missing a capture over a wrong one.
type Observer struct {
	library *store.Library
	cfg     Config

	// Observer state assumes a single feeding goroutine, one observer
	// per library. The library serializes its own writes.
	history    []ObservedEvent
	candidates map[string]*candidate
	captured   map[string]bool
	stats      Stats
}

// NewObserver creates an observer writing into the given library.
func NewObserver(library *store.Library, cfg Config) (*Observer, error) {
	if library == nil {
		return nil, fmt.Errorf("library required")
	}
	cfg.defaults()

	logging.Observer("Observer created: threshold=%.2f system=%s auto_capture=%v",
		cfg.StabilityThreshold, cfg.SystemName, cfg.AutoCapture)

	return &Observer{
		library:    library,
		cfg:        cfg,
		candidates: make(map[string]*candidate),
		captured:   make(map[string]bool),
	}, nil
}

// Observe records one host event and, if it signals convergence, runs the
// promotion logic. It never returns an error and never panics on strange
// event shapes; every extraction degrades to a default instead.
func (o *Observer) Observe(data map[string]any) {
	if o == nil || data == nil {
		return
	}

	o.stats.EventsObserved++

	eventType := getString(data, "event")
	if eventType == "" {
		eventType = "unknown"
	}

	o.recordEvent(eventType, data)

	stability := extractNumber(data, stabilityRules)
	logging.ObserverDebug("Observed: %s | stability=%.3f | %s",
		eventType, stability, truncate(getString(data, "title"), 50))

	if isConvergenceEvent(eventType) {
		o.handleConvergence(data, stability)
	}
}

// ForceCapture persists an event regardless of thresholds. Extraction
// still runs so the stored metrics reflect the event; the convergence
// check, the stability gates and the duplicate suppression are all
// skipped.
func (o *Observer) ForceCapture(data map[string]any) (string, error) {
	if o == nil || data == nil {
		return "", fmt.Errorf("event data required")
	}

	title := getString(data, "title")
	if title == "" {
		title = "Manual Capture"
	}
	axiom := getString(data, "axiom")
	if axiom == "" {
		axiom = getString(data, "description")
	}
	stability := extractNumber(data, stabilityRules)

	id, err := o.library.Capture(schema.Pattern{
		Title:          title,
		Axiom:          axiom,
		Abstract:       getString(data, "abstract"),
		Domain:         getString(data, "domain"),
		KnowledgeType:  getString(data, "knowledge_type"),
		Mechanism:      getMap(data, "mechanism"),
		ReasoningChain: getStringSlice(data, "reasoning_chain"),
		Tags:           getStringSlice(data, "tags"),
		Origin:         o.cfg.SystemName,
		Metrics: schema.Metrics{
			StabilityScore: stability,
			FitnessDelta:   extractNumber(data, fitnessRules),
		},
	})
	if err != nil {
		return "", err
	}

	o.captured[schema.CandidateHash(title, axiom)] = true
	o.stats.PatternsCaptured++
	logging.Observer("FORCE CAPTURED: %s - %s", id, title)

	if o.cfg.OnCapture != nil {
		o.cfg.OnCapture(id, title)
	}
	return id, nil
}

// Candidates returns the pending candidates, most observed first.
func (o *Observer) Candidates() []CandidateInfo {
	now := time.Now()
	infos := make([]CandidateInfo, 0, len(o.candidates))
	for _, c := range o.candidates {
		infos = append(infos, CandidateInfo{
			Title:        getString(c.data, "title"),
			Observations: c.observations,
			MaxStability: c.maxStability,
			Age:          now.Sub(c.firstSeen),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Observations > infos[j].Observations
	})
	return infos
}

// GetStats returns a snapshot of observer counters.
func (o *Observer) GetStats() Stats {
	stats := o.stats
	stats.CandidatesCount = len(o.candidates)
	stats.BufferSize = len(o.history)
	return stats
}

// History returns the most recent events, newest last, at most limit.
func (o *Observer) History(limit int) []ObservedEvent {
	if limit <= 0 || limit > len(o.history) {
		limit = len(o.history)
	}
	out := make([]ObservedEvent, limit)
	copy(out, o.history[len(o.history)-limit:])
	return out
}

func (o *Observer) recordEvent(eventType string, data map[string]any) {
	o.history = append(o.history, ObservedEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		EventType: eventType,
		Data:      data,
	})
	if len(o.history) > o.cfg.HistorySize {
		// Drop oldest; shift instead of reslice so the backing array
		// does not pin dropped events.
		copy(o.history, o.history[1:])
		o.history = o.history[:o.cfg.HistorySize]
	}
}

func (o *Observer) handleConvergence(data map[string]any, stability float64) {
	title := getString(data, "title")
	if title == "" {
		title = fmt.Sprintf("Pattern_%d", time.Now().Unix())
	}
	axiom := getString(data, "axiom")
	if axiom == "" {
		axiom = getString(data, "description")
	}

	hash := schema.CandidateHash(title, axiom)
	if o.captured[hash] {
		logging.ObserverDebug("Duplicate pattern skipped: %s", title)
		return
	}

	if stability >= o.cfg.StabilityThreshold {
		if o.cfg.AutoCapture {
			if _, err := o.capture(data, title, stability); err != nil {
				logging.Get(logging.CategoryObserver).Warn("Auto-capture failed for %q: %v", title, err)
			}
		}
		return
	}

	o.addCandidate(hash, data, stability)
}

func (o *Observer) addCandidate(hash string, data map[string]any, stability float64) {
	now := time.Now()

	if c, ok := o.candidates[hash]; ok {
		c.observations++
		if stability > c.maxStability {
			c.maxStability = stability
		}
		c.lastSeen = now

		if c.observations >= o.cfg.MinObservations && c.maxStability >= o.cfg.StabilityThreshold {
			title := getString(c.data, "title")
			if _, err := o.capture(c.data, title, c.maxStability); err != nil {
				logging.Get(logging.CategoryObserver).Warn("Promotion failed for %q: %v", title, err)
			}
		}
		return
	}

	o.evictStale(now)

	o.candidates[hash] = &candidate{
		data:         data,
		observations: 1,
		maxStability: stability,
		firstSeen:    now,
		lastSeen:     now,
	}
	logging.ObserverDebug("New candidate: %s", getString(data, "title"))
}

// evictStale drops idle candidates and, when the set is still at
// capacity, the least recently seen ones. An unbounded candidate map
// would grow for the process lifetime on a noisy host.
func (o *Observer) evictStale(now time.Time) {
	for hash, c := range o.candidates {
		if now.Sub(c.lastSeen) > o.cfg.CandidateMaxIdle {
			delete(o.candidates, hash)
			o.stats.CandidatesEvicted++
			logging.ObserverDebug("Evicted idle candidate: %s", getString(c.data, "title"))
		}
	}

	for len(o.candidates) >= o.cfg.CandidateCap {
		var stalest string
		var stalestSeen time.Time
		for hash, c := range o.candidates {
			if stalest == "" || c.lastSeen.Before(stalestSeen) {
				stalest = hash
				stalestSeen = c.lastSeen
			}
		}
		delete(o.candidates, stalest)
		o.stats.CandidatesEvicted++
	}
}

// capture maps event fields onto a pattern and writes it to the library.
// A pending candidate for the same (title, axiom) hash is retired along
// the way, whichever promotion path fired.
func (o *Observer) capture(data map[string]any, title string, stability float64) (string, error) {
	axiom := getString(data, "axiom")
	if axiom == "" {
		axiom = getString(data, "description")
	}

	hash := schema.CandidateHash(title, axiom)
	if o.captured[hash] {
		return "", nil
	}

	id, err := o.library.Capture(schema.Pattern{
		Title:          title,
		Axiom:          axiom,
		Abstract:       getString(data, "abstract"),
		Domain:         getString(data, "domain"),
		KnowledgeType:  getString(data, "knowledge_type"),
		Mechanism:      getMap(data, "mechanism"),
		ReasoningChain: getStringSlice(data, "reasoning_chain"),
		Tags:           getStringSlice(data, "tags"),
		Origin:         o.cfg.SystemName,
		Metrics: schema.Metrics{
			StabilityScore: stability,
			FitnessDelta:   extractNumber(data, fitnessRules),
		},
	})
	if err != nil {
		return "", err
	}

	o.captured[hash] = true
	o.stats.PatternsCaptured++
	if _, pending := o.candidates[hash]; pending {
		delete(o.candidates, hash)
		o.stats.CandidatesPromoted++
	}
	logging.Observer("CAPTURED: %s - %s (stability=%.3f)", id, title, stability)

	if o.cfg.OnCapture != nil {
		o.cfg.OnCapture(id, title)
	}
	return id, nil
}

func isConvergenceEvent(eventType string) bool {
	lowered := strings.ToLower(eventType)
	for _, kw := range convergenceKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
