package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
)

// Persist writes the proposal document and the final run state to the
// output directory: <slug>.json for the proposal and <slug>_state.json
// for the state. Runs that never produced a proposal still get their
// state file so failures are inspectable.
type Persist struct {
	outputDir string
	logger    *logging.Logger
}

// NewPersist creates the persistence stage.
func NewPersist(outputDir string, logger *logging.Logger) *Persist {
	return &Persist{outputDir: outputDir, logger: loggerOr(logger)}
}

func (p *Persist) Name() pipeline.StageName { return pipeline.StagePersist }

func (p *Persist) Run(ctx context.Context, s pipeline.State) (pipeline.Update, error) {
	if err := os.MkdirAll(p.outputDir, 0o750); err != nil {
		return pipeline.Update{}, fmt.Errorf("creating output directory: %w", err)
	}

	slug := s.Slug
	if slug == "" {
		slug = s.RunID
	}

	update := pipeline.Update{}

	if len(s.RawProposal) > 0 {
		proposalPath := filepath.Join(p.outputDir, slug+".json")
		if err := os.WriteFile(proposalPath, indented(s.RawProposal), 0o644); err != nil {
			return pipeline.Update{}, fmt.Errorf("writing proposal: %w", err)
		}
		update.ProposalPath = pipeline.String(proposalPath)
	}

	statePath := filepath.Join(p.outputDir, slug+"_state.json")

	// The state file reflects the state as persisted, paths included.
	final := s.Apply(update)
	final.StatePath = statePath
	stateData, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return pipeline.Update{}, fmt.Errorf("encoding run state: %w", err)
	}
	if err := os.WriteFile(statePath, stateData, 0o644); err != nil {
		return pipeline.Update{}, fmt.Errorf("writing run state: %w", err)
	}
	update.StatePath = pipeline.String(statePath)

	p.logger.Info(ctx, "run persisted",
		zap.String("state_path", statePath),
		zap.Bool("proposal_written", update.ProposalPath != nil))
	return update, nil
}

// indented pretty-prints raw JSON, falling back to the input bytes
// when they do not parse.
func indented(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	buf.WriteString("\n")
	return buf.Bytes()
}
