// Command unrest scores civil-unrest risk from the terminal. It evaluates the
// model in-process; no server is needed.
//
// Usage:
//
//	unrest score --city "Los Angeles" --justice-trigger 1
//	unrest presets
//	unrest form
//	unrest headlines --feed https://example.com/rss --limit 5
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/adapter/feed"
	"github.com/couchcryptid/unrest-risk-service/internal/assess"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/modelfile"
	"github.com/couchcryptid/unrest-risk-service/internal/observability"
	"github.com/couchcryptid/unrest-risk-service/internal/session"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// app carries the dependencies shared by every subcommand. Tests replace the
// prompter, terminal check and fetcher.
type app struct {
	modelPath string
	logLevel  string

	model    *domain.Model
	logger   *slog.Logger
	metrics  *observability.Metrics
	assessor *assess.Assessor

	prompter   prompter
	isTerminal func() bool
	fetcher    domain.HeadlineFetcher
}

func main() {
	a := &app{
		prompter:   huhPrompter{},
		isTerminal: stdinIsTerminal,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "unrest",
		Short:        "Estimate the probability of civil unrest from seven risk factors",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.modelPath, "model", os.Getenv("MODEL_FILE"), "model definition file (default: built-in model)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log to stderr at this level (debug, info, warn, error)")

	root.AddCommand(
		newScoreCmd(a),
		newPresetsCmd(a),
		newFormCmd(a),
		newHeadlinesCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	a.logger = observability.DiscardLogger()
	if a.logLevel != "" {
		a.logger = observability.NewConsoleLogger(stderr, a.logLevel)
	}
	a.metrics = observability.NewUnregisteredMetrics()

	a.model = domain.DefaultModel()
	if a.modelPath != "" {
		m, err := modelfile.Load(a.modelPath)
		if err != nil {
			return err
		}
		a.model = m
	}
	a.assessor = assess.NewAssessor(a.model, session.NewStore(1, 0, nil), nil, a.logger, a.metrics)
	return nil
}

func (a *app) headlineFetcher(timeout time.Duration) domain.HeadlineFetcher {
	if a.fetcher != nil {
		return a.fetcher
	}
	return feed.NewClient(timeout, a.metrics, a.logger)
}

// factorFlag maps a factor to its command-line flag, e.g. justice_trigger to
// --justice-trigger.
func factorFlag(f domain.Factor) string {
	return strings.ReplaceAll(string(f), "_", "-")
}

func newScoreCmd(a *app) *cobra.Command {
	var (
		city     string
		asJSON   bool
		showVars bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a preset or custom input vector",
		Long: `Score starts from the selected city's preset (or 0.5 for every factor
when no city is given) and replaces any factor passed as a flag.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ov domain.Override
			for _, f := range domain.Factors {
				name := factorFlag(f)
				if !cmd.Flags().Changed(name) {
					continue
				}
				v, err := cmd.Flags().GetFloat64(name)
				if err != nil {
					return err
				}
				if math.IsNaN(v) || v < 0 || v > 1 {
					return fmt.Errorf("--%s must be between 0 and 1, got %v", name, v)
				}
				ov = setOverride(ov, f, v)
			}

			id := a.assessor.CreateSession()
			asmt, err := a.assessor.Assess(cmd.Context(), id, assess.Request{City: city, Inputs: ov})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(asmt)
			}
			renderAssessment(out, asmt)
			if showVars {
				renderInputs(out, asmt.Inputs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "preset city to start from (default: Custom)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the assessment as JSON")
	cmd.Flags().BoolVar(&showVars, "inputs", false, "also print the evaluated input vector")
	for _, f := range domain.Factors {
		cmd.Flags().Float64(factorFlag(f), 0, f.Label()+" in [0, 1]")
	}
	return cmd
}

func setOverride(ov domain.Override, f domain.Factor, v float64) domain.Override {
	switch f {
	case domain.EconomicPressure:
		ov.EconomicPressure = &v
	case domain.PoliticalPolarization:
		ov.PoliticalPolarization = &v
	case domain.JusticeTrigger:
		ov.JusticeTrigger = &v
	case domain.SocialMediaVirality:
		ov.SocialMediaVirality = &v
	case domain.SymbolicTiming:
		ov.SymbolicTiming = &v
	case domain.ActivistInfrastructure:
		ov.ActivistInfrastructure = &v
	case domain.HistoryOfUnrest:
		ov.HistoryOfUnrest = &v
	}
	return ov
}

func newPresetsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the preset cities and their scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(a.model.Presets.Entries())
			}
			renderPresets(out, a.model)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the preset table as JSON")
	return cmd
}

func newFormCmd(a *app) *cobra.Command {
	var (
		feedURL string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Fill in the risk factors interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.isTerminal() {
				return errors.New("form needs an interactive terminal; use `unrest score` for scripts")
			}
			return a.runForm(cmd.Context(), cmd.OutOrStdout(), feedURL, limit)
		},
	}
	cmd.Flags().StringVar(&feedURL, "feed", os.Getenv("FEED_URL"), "RSS/Atom feed to show headlines from after each result")
	cmd.Flags().IntVar(&limit, "limit", 5, "number of headlines to show")
	return cmd
}

// runForm loops prompt -> assess -> render until the user stops. History
// accumulates for the lifetime of the command.
func (a *app) runForm(ctx context.Context, out io.Writer, feedURL string, limit int) error {
	id := a.assessor.CreateSession()
	defer a.assessor.EndSession(id) //nolint:errcheck // session is process-local

	for {
		sub, err := a.prompter.Submission(a.model.Presets)
		if errors.Is(err, errAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		asmt, err := a.assessor.Assess(ctx, id, assess.Request{City: sub.City, Inputs: sub.Inputs})
		if err != nil {
			return err
		}

		fmt.Fprintln(out)
		renderAssessment(out, asmt)
		if feedURL != "" {
			fmt.Fprintln(out)
			renderHeadlines(out, a.headlineFetcher(5*time.Second).FetchHeadlines(ctx, feedURL, limit))
		}

		hist, err := a.assessor.History(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		renderHistory(out, hist)

		again, err := a.prompter.Again()
		if errors.Is(err, errAborted) || (err == nil && !again) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func newHeadlinesCmd(a *app) *cobra.Command {
	var (
		feedURL string
		limit   int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "headlines",
		Short: "Show recent headlines from an RSS or Atom feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if feedURL == "" {
				return errors.New("--feed is required (or set FEED_URL)")
			}
			headlines := a.headlineFetcher(timeout).FetchHeadlines(cmd.Context(), feedURL, limit)
			renderHeadlines(cmd.OutOrStdout(), headlines)
			return nil
		},
	}
	cmd.Flags().StringVar(&feedURL, "feed", os.Getenv("FEED_URL"), "RSS/Atom feed URL")
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of headlines")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "feed request timeout")
	return cmd
}
