package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wikai/internal/observer"
	"wikai/internal/query"
	"wikai/internal/schema"
	"wikai/internal/store"
)

var (
	captureTitle     string
	captureAxiom     string
	captureAbstract  string
	captureDomain    string
	captureType      string
	captureOrigin    string
	captureTags      []string
	captureStability float64
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a new pattern into the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		p := schema.Pattern{
			Title:         captureTitle,
			Axiom:         captureAxiom,
			Abstract:      captureAbstract,
			Domain:        captureDomain,
			KnowledgeType: captureType,
			Origin:        captureOrigin,
			Tags:          captureTags,
			Metrics:       schema.Metrics{StabilityScore: captureStability},
		}
		if len(p.Tags) == 0 {
			p.Tags = schema.SuggestTags(p.Title, p.Axiom, p.Abstract)
		}
		id, err := c.library.Capture(p)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a pattern as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		p, err := c.library.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var (
	searchText         string
	searchDomain       string
	searchType         string
	searchTags         []string
	searchMinStability float64
	searchLimit        int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search patterns by text and structured filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		results := c.engine.Search(query.Filters{
			Text:          searchText,
			Domain:        searchDomain,
			KnowledgeType: searchType,
			Tags:          searchTags,
			MinStability:  searchMinStability,
			Limit:         searchLimit,
		})
		if len(results) == 0 {
			fmt.Println("no patterns found")
			return nil
		}
		for _, p := range results {
			fmt.Printf("%s  [%.2f]  %s\n", p.ID, p.Metrics.StabilityScore, p.Title)
			if p.Axiom != "" {
				fmt.Printf("    %s\n", truncate(p.Axiom, 100))
			}
		}
		return nil
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "List patterns related to the given one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		matches, err := c.builder.Related(args[0])
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("no related patterns")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%s  score=%d  %s  (%s)\n", m.ID, m.Score, m.Title, strings.Join(m.Reasons, ", "))
		}
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags with usage counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		counts := c.engine.Tags()
		if len(counts) == 0 {
			fmt.Println("no tags")
			return nil
		}
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if counts[names[i]] != counts[names[j]] {
				return counts[names[i]] > counts[names[j]]
			}
			return names[i] < names[j]
		})
		for _, name := range names {
			fmt.Printf("%4d  %s\n", counts[name], name)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print library statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		return printJSON(c.engine.GetStats())
	},
}

var observeWatch bool

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Stream newline-delimited JSON events from stdin into the observer",
	Long: `Reads one JSON event object per line from stdin and feeds each to the
ingestion observer. Convergence events above the stability threshold are
captured immediately; weaker signals accumulate as candidates and promote
once they repeat. Prints a summary when stdin closes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		obs, err := newObserver(c.library)
		if err != nil {
			return err
		}

		var watcher *store.Watcher
		if observeWatch && cfg.Library.WatchEnabled {
			watcher, err = store.NewWatcher(c.library, cfg.GetWatchDebounce())
			if err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			if err := watcher.Start(context.Background()); err != nil {
				return err
			}
			defer watcher.Stop()
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		lines := 0
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			lines++
			var data map[string]any
			if err := json.Unmarshal([]byte(line), &data); err != nil {
				logger.Warn("skipping malformed event", zap.Int("line", lines), zap.Error(err))
				continue
			}
			obs.Observe(data)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		return printJSON(obs.GetStats())
	},
}

var forceCaptureCmd = &cobra.Command{
	Use:   "force-capture",
	Short: "Capture a single JSON event from stdin, bypassing all thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		var data map[string]any
		if err := json.NewDecoder(os.Stdin).Decode(&data); err != nil {
			return fmt.Errorf("reading event: %w", err)
		}
		obs, err := newObserver(c.library)
		if err != nil {
			return err
		}
		id, err := obs.ForceCapture(data)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Replay events from stdin and list surviving candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCommons()
		if err != nil {
			return err
		}
		obs, err := newObserver(c.library)
		if err != nil {
			return err
		}
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var data map[string]any
			if err := json.Unmarshal([]byte(line), &data); err != nil {
				continue
			}
			obs.Observe(data)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		return printJSON(obs.Candidates())
	},
}

func newObserver(library *store.Library) (*observer.Observer, error) {
	return observer.NewObserver(library, observer.Config{
		AutoCapture:        cfg.Observer.AutoCapture,
		StabilityThreshold: cfg.Observer.StabilityThreshold,
		SystemName:         cfg.Observer.SystemName,
		MinObservations:    cfg.Observer.MinObservations,
		HistorySize:        cfg.Observer.HistorySize,
		CandidateCap:       cfg.Observer.CandidateCap,
		CandidateMaxIdle:   cfg.GetCandidateMaxIdle(),
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	captureCmd.Flags().StringVar(&captureTitle, "title", "", "pattern title (required)")
	captureCmd.Flags().StringVar(&captureAxiom, "axiom", "", "pattern axiom (required)")
	captureCmd.Flags().StringVar(&captureAbstract, "abstract", "", "short abstract")
	captureCmd.Flags().StringVar(&captureDomain, "domain", "", "domain classification")
	captureCmd.Flags().StringVar(&captureType, "type", "", "knowledge type")
	captureCmd.Flags().StringVar(&captureOrigin, "origin", "", "originating system")
	captureCmd.Flags().StringSliceVar(&captureTags, "tags", nil, "comma-separated tags")
	captureCmd.Flags().Float64Var(&captureStability, "stability", 0, "stability score [0,1]")
	_ = captureCmd.MarkFlagRequired("title")
	_ = captureCmd.MarkFlagRequired("axiom")

	searchCmd.Flags().StringVar(&searchText, "text", "", "free-text query")
	searchCmd.Flags().StringVar(&searchDomain, "domain", "", "filter by domain")
	searchCmd.Flags().StringVar(&searchType, "type", "", "filter by knowledge type")
	searchCmd.Flags().StringSliceVar(&searchTags, "tags", nil, "require all of these tags")
	searchCmd.Flags().Float64Var(&searchMinStability, "min-stability", 0, "minimum stability score")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (0 = unlimited)")

	observeCmd.Flags().BoolVar(&observeWatch, "watch", false, "watch the patterns directory while observing")
}
