package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"storyloom/internal/actions"
	"storyloom/internal/gen"
)

// FailureRecord is the durable description of a failed tick, written to
// failures/tick_<n>.json. The tick counter is untouched on failure, so the
// record documents exactly what the retry will re-attempt.
type FailureRecord struct {
	Tick      int          `json:"tick"`
	RunID     string       `json:"run_id"`
	Timestamp time.Time    `json:"timestamp"`
	Error     FailureError `json:"error"`

	Plan             *Plan            `json:"plan,omitempty"`
	PartialExecution []map[string]any `json:"partial_execution,omitempty"`

	RecoveryInstructions string `json:"recovery_instructions"`
}

type FailureError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Trace lists the stages that completed before the failing one.
	Trace []string `json:"trace,omitempty"`
}

const recoveryInstructions = "Re-run the tick after addressing the error. " +
	"Entity creation is idempotent and identifier allocation reconciles against disk, " +
	"so a partially executed action list is safe to replay from the start."

func (e *Engine) writeFailureRecord(t *tickState, stage string, cause error) error {
	dir := filepath.Join(e.projectDir, "failures")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating failures directory: %w", err)
	}

	rec := FailureRecord{
		Tick:      t.tick,
		RunID:     uuid.NewString(),
		Timestamp: e.now().UTC(),
		Error: FailureError{
			Kind:    failureKind(stage, cause),
			Message: cause.Error(),
			Trace:   append(t.completedStages, stage),
		},
		Plan:                 t.plan,
		PartialExecution:     t.dispatched,
		RecoveryInstructions: recoveryInstructions,
	}

	var derr *actions.DispatchError
	if errors.As(cause, &derr) {
		rec.PartialExecution = derr.Partial
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding failure record: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("tick_%d.json", t.tick))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing failure record: %w", err)
	}
	return nil
}

// failureKind folds the generation error taxonomy and the stage name into
// one label for triage.
func failureKind(stage string, err error) string {
	if kind := gen.ErrorKind(err); kind != "other" && kind != "" {
		return kind
	}
	var derr *actions.DispatchError
	if errors.As(err, &derr) {
		return "dispatch"
	}
	switch stage {
	case StageValidate, StageEvaluate:
		return "validation"
	default:
		return "internal"
	}
}
