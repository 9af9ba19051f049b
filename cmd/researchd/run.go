package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/researchd/internal/pipeline"
)

var (
	runAlphaOnly   bool
	runInstruments string
	runSlug        string
	runOutputDir   string
)

var runCmd = &cobra.Command{
	Use:   "run <idea>",
	Short: "Run the research pipeline for an idea",
	Long: `Run the full research pipeline for a free-text strategy idea.

The pipeline plans the research, gathers web and prior-art context,
asks an LLM for a critical review, synthesizes the proposal JSON,
validates it against the proposal schema, and writes the result to the
output directory.

Examples:
  # Run with a full proposal
  researchd run "momentum rotation across sector ETFs"

  # Restrict the proposal to a single alpha
  researchd run --alpha-only "overnight gap reversal"

  # Target specific instruments
  researchd run --instruments "US Equities, ETFs" "sector momentum"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&runAlphaOnly, "alpha-only", false, "restrict the proposal to one alpha and one existing universe")
	runCmd.Flags().StringVar(&runInstruments, "instruments", "", "target financial instruments")
	runCmd.Flags().StringVar(&runSlug, "slug", "", "output file slug (derived from the idea if empty)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "proposal output directory (overrides config)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if runOutputDir != "" {
		a.cfg.Run.OutputDir = runOutputDir
	}

	driver, _, err := a.newDriver(ctx)
	if err != nil {
		return err
	}

	idea := strings.TrimSpace(strings.Join(args, " "))
	if idea == "" {
		return fmt.Errorf("idea cannot be empty")
	}

	slug := runSlug
	if slug == "" {
		slug = slugify(idea)
	}

	final, err := driver.Run(ctx, pipeline.State{
		RunID:       uuid.New().String(),
		Idea:        idea,
		AlphaOnly:   runAlphaOnly,
		Slug:        slug,
		Instruments: runInstruments,
	})
	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}

	printRunSummary(cmd, final)
	if final.Error != "" {
		return fmt.Errorf("run finished with error: %s", final.Error)
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, s pipeline.State) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s finished\n", s.RunID)
	if s.QualityScore != nil {
		fmt.Fprintf(out, "  Viability score:    %.0f/100\n", *s.QualityScore)
	}
	if s.PriorArt != nil {
		fmt.Fprintf(out, "  Prior art verdict:  %s (%d found)\n", s.PriorArt.Verdict, s.PriorArt.TotalFound)
	}
	fmt.Fprintf(out, "  Planning restarts:  %d\n", s.PlanningIteration)
	if s.RepairAttempts > 0 {
		fmt.Fprintf(out, "  Repair attempts:    %d\n", s.RepairAttempts)
	}
	if s.ProposalPath != "" {
		fmt.Fprintf(out, "  Proposal:           %s\n", s.ProposalPath)
	}
	if s.StatePath != "" {
		fmt.Fprintf(out, "  State:              %s\n", s.StatePath)
	}
	if s.IssueURL != "" {
		fmt.Fprintf(out, "  Issue:              %s\n", s.IssueURL)
	}
	if s.Error != "" {
		fmt.Fprintf(out, "  Error:              %s\n", s.Error)
	}
}
