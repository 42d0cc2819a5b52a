package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"graphtutor/internal/config"
	"graphtutor/internal/curriculum"
	"graphtutor/internal/llm"
	"graphtutor/internal/logging"
	"graphtutor/internal/usage"
)

const version = "0.3.0"

var (
	debug     bool
	graphJSON bool
)

// rootCmd launches the interactive tutoring interface.
var rootCmd = &cobra.Command{
	Use:   "graphtutor",
	Short: "graphtutor is a terminal tutor that teaches along a generated concept graph",
	Long: `graphtutor turns a learning objective into a concept dependency graph
and tutors you through it, one concept at a time.

The curriculum pane shows the generated graph; the chat pane carries the
conversation. The model adopts named personas (Quizmaster, Analogist, ...)
and the teaching style can be flipped between Socratic and Direct mid-session.

Run without arguments to start the interactive interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive TUI owns the terminal; zap stays a no-op there
		// unless debug logging was asked for explicitly.
		if cmd.CalledAs() == "graphtutor" && !debug {
			return nil
		}
		return logging.Initialize(debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			// A broken config file falls back to defaults; say so and continue.
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		client, _, cleanup, err := buildClient(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		watcher := watchConfig(client)
		if watcher != nil {
			defer watcher.Stop()
		}

		return runInteractiveChat(cfg, client)
	},
}

// graphCmd generates a curriculum graph without starting a session.
var graphCmd = &cobra.Command{
	Use:   "graph [objective]",
	Short: "Generate a concept graph for an objective and print it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		client, _, cleanup, err := buildClient(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		objective := strings.Join(args, " ")

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TimeoutDuration())
		defer cancel()

		generator := curriculum.NewGenerator(client)
		graph, genErr := generator.Generate(ctx, objective)
		if genErr != nil {
			fmt.Fprintf(os.Stderr, "warning: generation degraded: %v\n", genErr)
		}
		if err := graph.Validate(); err != nil {
			return fmt.Errorf("generated graph invalid: %w", err)
		}

		if graphJSON {
			out, err := json.MarshalIndent(graph, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Print(renderGraphText(graph))
		return nil
	},
}

// usageCmd prints accumulated token usage.
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show accumulated token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		tracker, err := usage.NewTracker(dir)
		if err != nil {
			return err
		}
		defer tracker.Close()

		stats := tracker.Snapshot()
		fmt.Printf("Total: %d tokens over %d calls (%d prompt, %d output)\n",
			stats.Total.Total, stats.Total.Calls, stats.Total.Prompt, stats.Total.Output)

		printCountsTable("By model", stats.ByModel)
		printCountsTable("By operation", stats.ByOperation)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the graphtutor version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("graphtutor " + version)
	},
}

// buildClient wires the configured engine to the usage tracker. The cleanup
// function flushes pending usage writes.
func buildClient(cfg config.Config) (llm.Client, *usage.Tracker, func(), error) {
	client, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	dir, err := config.Dir()
	if err != nil {
		return nil, nil, nil, err
	}
	tracker, err := usage.NewTracker(dir)
	if err != nil {
		// Usage accounting is best effort; run without it.
		logging.Get(logging.CategoryUsage).Warnw("usage tracking disabled", "error", err)
		return client, nil, func() {}, nil
	}

	if rc, ok := client.(interface{ SetRecorder(llm.Recorder) }); ok {
		rc.SetRecorder(tracker)
	}

	cleanup := func() {
		if err := tracker.Close(); err != nil {
			logging.Get(logging.CategoryUsage).Warnw("usage flush failed", "error", err)
		}
	}
	return client, tracker, cleanup, nil
}

// watchConfig reloads the model name when the config file changes on disk.
// Returns nil when the config path cannot be resolved; hot reload is optional.
func watchConfig(client llm.Client) *config.Watcher {
	path, err := config.File()
	if err != nil {
		return nil
	}

	log := logging.Get(logging.CategoryConfig)
	watcher, err := config.NewWatcher(path, func(cfg config.Config) {
		log.Infow("config reloaded", "model", cfg.Model)
		if mc, ok := client.(interface{ SetModel(string) }); ok {
			mc.SetModel(cfg.Model)
		}
	})
	if err != nil {
		log.Warnw("config watch unavailable", "error", err)
		return nil
	}
	if err := watcher.Start(context.Background()); err != nil {
		log.Warnw("config watch failed to start", "error", err)
		return nil
	}
	return watcher
}

// renderGraphText formats a graph for plain terminal output.
func renderGraphText(graph curriculum.LearningGraph) string {
	out := ""
	for _, node := range graph.Nodes {
		glyph := "○"
		switch node.Status {
		case curriculum.StatusCompleted:
			glyph = "✓"
		case curriculum.StatusActive:
			glyph = "●"
		}
		out += fmt.Sprintf("%s %s (%s)\n", glyph, node.Label, node.ID)
		for _, child := range graph.ChildrenOf(node.ID) {
			if target, ok := graph.Node(child); ok {
				out += fmt.Sprintf("  └─ %s\n", target.Label)
			}
		}
	}
	return out
}

func printCountsTable(title string, counts map[string]usage.TokenCounts) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println()
	fmt.Println(title + ":")
	for _, k := range keys {
		c := counts[k]
		fmt.Printf("  %-32s %8d tokens %6d calls\n", k, c.Total, c.Calls)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "print the graph as JSON")

	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
