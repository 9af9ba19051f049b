package stages

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
	"github.com/fyrsmithlabs/researchd/internal/proposal"
	"github.com/fyrsmithlabs/researchd/internal/schema"
)

// maxValidationErrors caps the combined schema and alpha-only error
// list fed back into the repair loop.
const maxValidationErrors = 5

// Validate checks the synthesized proposal against the JSON schema
// and, for alpha-only runs, the structural cardinality rules. Errors
// are recorded in state; the router decides whether they trigger a
// repair pass.
type Validate struct {
	validator *schema.Validator
	logger    *logging.Logger
}

// NewValidate creates the validation stage.
func NewValidate(validator *schema.Validator, logger *logging.Logger) *Validate {
	return &Validate{validator: validator, logger: loggerOr(logger)}
}

func (v *Validate) Name() pipeline.StageName { return pipeline.StageValidate }

func (v *Validate) Run(ctx context.Context, s pipeline.State) (pipeline.Update, error) {
	if len(s.RawProposal) == 0 {
		return pipeline.Update{
			ValidationErrors: pipeline.Strings([]string{"no proposal to validate"}),
			ValidationReport: pipeline.String("Validation failed: no proposal was synthesized"),
		}, nil
	}

	errs := v.validator.Validate(s.RawProposal)

	var doc *proposal.Document
	if parsed, err := proposal.Parse(s.RawProposal); err == nil {
		doc = parsed
		if s.AlphaOnly {
			errs = append(errs, doc.AlphaOnlyViolations()...)
		}
	}

	if len(errs) > maxValidationErrors {
		errs = errs[:maxValidationErrors]
	}

	update := pipeline.Update{
		ValidationErrors: pipeline.Strings(errs),
		ValidationReport: pipeline.String(report(errs)),
	}
	if doc != nil {
		update.Document = doc
	}

	if len(errs) > 0 {
		v.logger.Warn(ctx, "proposal failed validation",
			zap.Int("errors", len(errs)),
			zap.Int("repair_attempts", s.RepairAttempts))
	} else {
		v.logger.Info(ctx, "proposal valid")
	}
	return update, nil
}

func report(errs []string) string {
	if len(errs) == 0 {
		return "Proposal conforms to the schema"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Validation failed with %d error(s):\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e)
	}
	return b.String()
}
