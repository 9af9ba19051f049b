// Package checkpoint persists run snapshots so interrupted or completed
// runs can be inspected and resumed.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/logging"
)

// ErrNotFound is returned when no snapshot exists for a run.
var ErrNotFound = errors.New("checkpoint not found")

// runIDPattern guards against path traversal in snapshot filenames.
var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Snapshot is the persisted view of a run after a pipeline step.
type Snapshot struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Stage     string          `json:"stage"`
	Sequence  int             `json:"sequence"`
	Branch    string          `json:"branch,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	State     json.RawMessage `json:"state"`
}

// Validate checks required snapshot fields.
func (s *Snapshot) Validate() error {
	if s.RunID == "" {
		return fmt.Errorf("run ID is required")
	}
	if !runIDPattern.MatchString(s.RunID) {
		return fmt.Errorf("run ID contains invalid characters: %q", s.RunID)
	}
	if s.Stage == "" {
		return fmt.Errorf("stage is required")
	}
	return nil
}

// Store writes one snapshot file per run under a checkpoint directory.
// Each save replaces the previous snapshot for the run; the latest
// snapshot is sufficient to resume or inspect.
type Store struct {
	dir         string
	projectPath string
	logger      *logging.Logger
}

// NewStore creates the checkpoint directory if needed. projectPath is
// used for git branch auto-detection and may be empty.
func NewStore(dir, projectPath string, logger *logging.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	if logger == nil {
		logger = logging.FromContext(context.Background())
	}
	return &Store{dir: dir, projectPath: projectPath, logger: logger}, nil
}

// Save persists a snapshot, assigning ID, timestamp, and git branch
// metadata when absent. The write is atomic (temp file plus rename).
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("validating snapshot: %w", err)
	}

	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	if snap.Branch == "" && s.projectPath != "" {
		if branch, err := detectGitBranch(s.projectPath); err == nil && branch != "" {
			snap.Branch = branch
			s.logger.Debug(ctx, "auto-detected git branch", zap.String("branch", branch))
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	final := s.path(snap.RunID)
	tmp, err := os.CreateTemp(s.dir, snap.RunID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.logger.Debug(ctx, "checkpoint saved",
		zap.String("run.id", snap.RunID),
		zap.String("run.stage", snap.Stage),
		zap.Int("sequence", snap.Sequence))
	return nil
}

// Load returns the latest snapshot for a run.
func (s *Store) Load(ctx context.Context, runID string) (*Snapshot, error) {
	if !runIDPattern.MatchString(runID) {
		return nil, fmt.Errorf("run ID contains invalid characters: %q", runID)
	}

	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// List returns the run IDs with stored snapshots.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		runs = append(runs, name[:len(name)-len(".json")])
	}
	return runs, nil
}

func (s *Store) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}
