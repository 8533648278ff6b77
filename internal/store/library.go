// Package store implements the Library: durable persistence and identity
// allocation for Commons patterns. Each pattern is one pretty-printed JSON
// file in a flat directory, so the Commons can be version-controlled and
// shared between systems.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"wikai/internal/logging"
	"wikai/internal/schema"
)

// ErrNotFound is returned by Get for an unknown pattern ID. It is an
// expected condition, not a failure.
var ErrNotFound = errors.New("pattern not found")

// rescanParallelism bounds concurrent file reads during a rescan.
const rescanParallelism = 8

// Library manages pattern storage, retrieval and ID allocation.
//
// All writes are serialized on the library mutex: the allocate-then-write
// sequence must never interleave, or two captures could be assigned the
// same ID. Reads work against the in-memory cache, refreshed by Rescan.
type Library struct {
	dir string

	mu     sync.RWMutex
	cache  map[string]*schema.Pattern
	nextID int
}

// NewLibrary opens (creating if necessary) a Library rooted at dir and
// loads every persisted pattern into the cache.
func NewLibrary(dir string) (*Library, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLibrary")
	defer timer.Stop()

	if dir == "" {
		return nil, fmt.Errorf("patterns directory required")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create patterns directory: %w", err)
	}

	lib := &Library{
		dir:    dir,
		cache:  make(map[string]*schema.Pattern),
		nextID: 1,
	}

	if err := lib.Rescan(); err != nil {
		return nil, err
	}

	logging.Store("Library opened at %s (%d patterns)", dir, lib.Count())
	return lib, nil
}

// Dir returns the patterns directory.
func (l *Library) Dir() string {
	return l.dir
}

// Count returns the number of cached patterns.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// Capture validates the pattern, allocates the next ID, stamps timestamp
// and content hash, and persists it atomically. The caller's ID,
// timestamp and content hash are ignored; every other field is stored
// verbatim. Returns the newly assigned ID.
func (l *Library) Capture(p schema.Pattern) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Library.Capture")
	defer timer.Stop()

	if l == nil {
		return "", fmt.Errorf("library not initialized")
	}

	p.ID = ""
	res := schema.Validate(&p)
	for _, w := range res.Warnings {
		logging.StoreWarn("capture %q: %s", p.Title, w)
	}
	if err := res.Err(); err != nil {
		return "", err
	}

	if p.Origin == "" {
		p.Origin = schema.DefaultOrigin
	}
	if p.Version == "" {
		p.Version = schema.DefaultVersion
	}
	if p.Mechanism == nil {
		p.Mechanism = map[string]any{}
	}
	if p.ReasoningChain == nil {
		p.ReasoningChain = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p.ID = fmt.Sprintf("%s%04d", schema.IDPrefix, l.nextID)
	p.Timestamp = schema.NowTimestamp()
	p.ContentHash = schema.ContentHash(p.Title, p.Axiom, p.Mechanism)

	filename := fmt.Sprintf("%s_%s.json", p.ID, slugify(p.Title))
	if err := l.writeAtomic(filepath.Join(l.dir, filename), &p); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to persist %s: %v", p.ID, err)
		return "", err
	}

	// Only advance the counter once the file is durable; a failed write
	// must not burn an ID.
	l.nextID++
	l.cache[p.ID] = &p

	logging.Store("Captured: %s - %s", p.ID, p.Title)
	return p.ID, nil
}

// writeAtomic writes the pattern JSON through a temp file and rename so a
// failed write never leaves a partial file discoverable by Rescan.
func (l *Library) writeAtomic(path string, p *schema.Pattern) error {
	tmp, err := os.CreateTemp(l.dir, ".wikai-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode pattern: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit pattern file: %w", err)
	}
	return nil
}

// Get returns the pattern with the given ID, or ErrNotFound.
func (l *Library) Get(id string) (*schema.Pattern, error) {
	if l == nil {
		return nil, fmt.Errorf("library not initialized")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.cache[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// ListAll returns every cached pattern, newest first by (timestamp, id).
// Patterns without a parseable timestamp sort last.
func (l *Library) ListAll() []*schema.Pattern {
	l.mu.RLock()
	patterns := make([]*schema.Pattern, 0, len(l.cache))
	for _, p := range l.cache {
		patterns = append(patterns, p)
	}
	l.mu.RUnlock()

	sort.SliceStable(patterns, func(i, j int) bool {
		ti, tj := patterns[i].Time(), patterns[j].Time()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return patterns[i].ID > patterns[j].ID
	})
	return patterns
}

// Rescan re-reads every pattern file into the cache. Unreadable or
// malformed files are logged and skipped: one bad file must never prevent
// the rest of the Commons from loading. The ID high-water mark only ever
// moves forward, so IDs deleted out-of-band are not reused.
func (l *Library) Rescan() error {
	timer := logging.StartTimer(logging.CategoryStore, "Library.Rescan")
	defer timer.Stop()

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to read patterns directory: %w", err)
	}

	var (
		g       errgroup.Group
		loadMu  sync.Mutex
		loaded  = make(map[string]*schema.Pattern)
		skipped int
	)
	g.SetLimit(rescanParallelism)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(l.dir, name)

		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				logging.StoreWarn("Failed to read pattern %s: %v", path, err)
				loadMu.Lock()
				skipped++
				loadMu.Unlock()
				return nil
			}

			var p schema.Pattern
			if err := json.Unmarshal(data, &p); err != nil {
				logging.StoreWarn("Failed to parse pattern %s: %v", path, err)
				loadMu.Lock()
				skipped++
				loadMu.Unlock()
				return nil
			}
			if p.ID == "" {
				logging.StoreWarn("Pattern file %s has no id, skipping", path)
				loadMu.Lock()
				skipped++
				loadMu.Unlock()
				return nil
			}

			loadMu.Lock()
			loaded[p.ID] = &p
			loadMu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-file failures are absorbed above

	maxSeen := 0
	for id := range loaded {
		if n, ok := sequenceOf(id); ok && n > maxSeen {
			maxSeen = n
		}
	}

	l.mu.Lock()
	l.cache = loaded
	if maxSeen+1 > l.nextID {
		l.nextID = maxSeen + 1
	}
	l.mu.Unlock()

	logging.Store("Rescan loaded %d patterns (%d skipped)", len(loaded), skipped)
	return nil
}

// sequenceOf extracts the numeric suffix of a WIKAI_NNNN id.
func sequenceOf(id string) (int, bool) {
	if !strings.HasPrefix(id, schema.IDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, schema.IDPrefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// slugify converts a title to a filename-safe slug, length-capped at 50.
func slugify(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	slug := b.String()
	for strings.Contains(slug, "__") {
		slug = strings.ReplaceAll(slug, "__", "_")
	}
	slug = strings.Trim(slug, "_")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	return slug
}
