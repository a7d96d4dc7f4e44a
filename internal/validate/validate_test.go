package validate

import (
	"context"
	"testing"

	"storyloom/internal/entity"
	"storyloom/internal/store/fs"
)

func beat(id string, status entity.BeatStatus, prereqs ...string) *entity.PlotBeat {
	return &entity.PlotBeat{
		Meta:          entity.Meta{ID: id},
		Description:   "beat " + id,
		Status:        status,
		Prerequisites: prereqs,
	}
}

func codes(r *Report) map[string]int {
	out := map[string]int{}
	for _, issue := range r.Issues {
		out[issue.Code]++
	}
	return out
}

func TestValidateOutlineClean(t *testing.T) {
	report := ValidateOutline([]*entity.PlotBeat{
		beat("beat_1", entity.BeatCompleted),
		beat("beat_2", entity.BeatInProgress, "beat_1"),
		beat("beat_3", entity.BeatPending, "beat_2"),
	})
	if len(report.Issues) != 0 {
		t.Fatalf("expected no issues, got %v", report.Issues)
	}
	if report.HasErrors() {
		t.Fatal("clean outline must not report errors")
	}
}

func TestValidateOutlineDuplicateIDs(t *testing.T) {
	report := ValidateOutline([]*entity.PlotBeat{
		beat("beat_1", entity.BeatPending),
		beat("beat_1", entity.BeatPending),
	})
	if got := codes(report)["duplicate_beat_id"]; got != 1 {
		t.Fatalf("expected 1 duplicate issue, got %d", got)
	}
	if !report.HasErrors() {
		t.Fatal("duplicate identifiers are errors")
	}
}

func TestValidateOutlineUnknownPrerequisite(t *testing.T) {
	report := ValidateOutline([]*entity.PlotBeat{
		beat("beat_1", entity.BeatPending, "beat_9"),
	})
	if got := codes(report)["unknown_prerequisite"]; got != 1 {
		t.Fatalf("expected 1 unknown prerequisite issue, got %d", got)
	}
}

func TestValidateOutlineSelfPrerequisite(t *testing.T) {
	report := ValidateOutline([]*entity.PlotBeat{
		beat("beat_1", entity.BeatPending, "beat_1"),
	})
	if got := codes(report)["self_prerequisite"]; got != 1 {
		t.Fatalf("expected 1 self prerequisite issue, got %d", got)
	}
}

func TestValidateOutlineOrderingWarning(t *testing.T) {
	report := ValidateOutline([]*entity.PlotBeat{
		beat("beat_1", entity.BeatPending),
		beat("beat_2", entity.BeatCompleted, "beat_1"),
	})
	if got := codes(report)["prerequisite_incomplete"]; got != 1 {
		t.Fatalf("expected 1 ordering warning, got %d", got)
	}
	if report.HasErrors() {
		t.Fatal("ordering problems are warnings, not errors")
	}
}

func TestValidateOutlineInvalidStatus(t *testing.T) {
	report := ValidateOutline([]*entity.PlotBeat{
		beat("beat_1", entity.BeatStatus("paused")),
	})
	if got := codes(report)["status_invalid"]; got != 1 {
		t.Fatalf("expected 1 status issue, got %d", got)
	}
}

func TestRunReportsPersistedOutlineIssues(t *testing.T) {
	ctx := context.Background()
	st, err := fs.New(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer st.Close(ctx)

	if err := st.SavePlotBeat(ctx, beat("beat_1", entity.BeatStatus("paused"), "beat_9")); err != nil {
		t.Fatalf("saving beat: %v", err)
	}
	if err := st.SavePlotBeat(ctx, beat("beat_2", entity.BeatCompleted, "beat_1")); err != nil {
		t.Fatalf("saving beat: %v", err)
	}

	report, err := Run(ctx, st)
	if err != nil {
		t.Fatalf("running validation: %v", err)
	}
	got := codes(report)
	if got["status_invalid"] != 1 {
		t.Fatalf("expected 1 status issue, got %d", got["status_invalid"])
	}
	if got["unknown_prerequisite"] != 1 {
		t.Fatalf("expected 1 unknown prerequisite issue, got %d", got["unknown_prerequisite"])
	}
	if got["prerequisite_incomplete"] != 1 {
		t.Fatalf("expected 1 ordering warning, got %d", got["prerequisite_incomplete"])
	}
	if !report.HasErrors() {
		t.Fatal("persisted outline problems must surface as errors")
	}
}
