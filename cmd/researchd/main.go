// Researchd turns free-text trading strategy ideas into validated,
// schema-conformant research proposals.
//
// The pipeline plans the research, gathers web and prior-art context,
// asks an LLM for a critical review, synthesizes the proposal JSON,
// validates it against the proposal schema, and persists the result.
//
// Usage:
//
//	# Run the pipeline for an idea
//	researchd run "momentum rotation across sector ETFs"
//
//	# Restrict the proposal to a single alpha
//	researchd run --alpha-only "overnight gap reversal"
//
//	# Validate an existing proposal file
//	researchd validate proposals/momentum-rotation.json
//
//	# Serve the HTTP API
//	researchd serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionString renders the version command output.
func versionString() string {
	return fmt.Sprintf("researchd by Fyrsmith Labs\nVersion:    %s\nCommit:     %s\n", version, gitCommit)
}

var rootCmd = &cobra.Command{
	Use:   "researchd",
	Short: "Research proposal pipeline for trading strategy ideas",
	Long: `researchd drives a free-text trading strategy idea through a staged
pipeline that produces a validated research proposal document: planning,
web research, prior art search, critical review, synthesis, schema
validation, and persistence.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(versionString())
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/researchd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
}
