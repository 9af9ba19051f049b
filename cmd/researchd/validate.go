package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/researchd/internal/proposal"
	"github.com/fyrsmithlabs/researchd/internal/schema"
)

var (
	validateSchemaPath string
	validateAlphaOnly  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <proposal.json>",
	Short: "Validate a proposal file against the schema",
	Long: `Validate an existing proposal file against the proposal schema and,
with --alpha-only, the alpha-only structural constraints.

Examples:
  # Validate against the default schema
  researchd validate proposals/momentum-rotation.json

  # Validate alpha-only constraints too
  researchd validate --alpha-only proposals/gap-reversal.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema", "schema/proposal-schema.json", "proposal schema path")
	validateCmd.Flags().BoolVar(&validateAlphaOnly, "alpha-only", false, "also check alpha-only structural constraints")
}

func runValidate(cmd *cobra.Command, args []string) error {
	validator, err := schema.Load(validateSchemaPath)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading proposal: %w", err)
	}

	errs := validator.Validate(data)
	if validateAlphaOnly {
		if doc, err := proposal.Parse(data); err == nil {
			errs = append(errs, doc.AlphaOnlyViolations()...)
		}
	}

	out := cmd.OutOrStdout()
	if len(errs) == 0 {
		fmt.Fprintf(out, "%s is valid\n", args[0])
		return nil
	}

	fmt.Fprintf(out, "%s failed validation with %d error(s):\n", args[0], len(errs))
	for i, e := range errs {
		fmt.Fprintf(out, "  %d. %s\n", i+1, e)
	}
	return fmt.Errorf("proposal is invalid")
}
