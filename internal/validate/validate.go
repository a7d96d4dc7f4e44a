// Package validate checks a plot outline for structural problems. Issues
// are reported, never fatal: a broken outline should be visible, not block
// the story from running.
package validate

import (
	"context"
	"fmt"

	"storyloom/internal/entity"
	"storyloom/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeDuplicateBeat       = "duplicate_beat_id"
	codeUnknownPrerequisite = "unknown_prerequisite"
	codeSelfPrerequisite    = "self_prerequisite"
	codeStatusInvalid       = "status_invalid"
	codePrereqIncomplete    = "prerequisite_incomplete"
	codeMissingDescription  = "missing_description"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Beat     string
}

type Report struct {
	Issues []Issue
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

var validStatuses = map[entity.BeatStatus]bool{
	entity.BeatPending:    true,
	entity.BeatInProgress: true,
	entity.BeatCompleted:  true,
	entity.BeatSkipped:    true,
}

// Run loads the outline from the store and validates it.
func Run(ctx context.Context, st store.Store) (*Report, error) {
	beats, err := st.ListPlotBeats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading plot outline: %w", err)
	}
	return ValidateOutline(beats), nil
}

// ValidateOutline checks the beat sequence: identifiers must be unique,
// every prerequisite must resolve to an existing beat, and statuses must be
// consistent with the prerequisite ordering.
func ValidateOutline(beats []*entity.PlotBeat) *Report {
	issues := make([]Issue, 0)

	byID := make(map[string]*entity.PlotBeat, len(beats))
	for _, beat := range beats {
		if _, dup := byID[beat.ID]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeDuplicateBeat,
				Message:  fmt.Sprintf("beat identifier %s appears more than once", beat.ID),
				Beat:     beat.ID,
			})
			continue
		}
		byID[beat.ID] = beat
	}

	for _, beat := range beats {
		if beat.Description == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeMissingDescription,
				Message:  "beat has no description",
				Beat:     beat.ID,
			})
		}
		if beat.Status != "" && !validStatuses[beat.Status] {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeStatusInvalid,
				Message:  fmt.Sprintf("invalid beat status: %s", beat.Status),
				Beat:     beat.ID,
			})
		}

		for _, prereq := range beat.Prerequisites {
			if prereq == beat.ID {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     codeSelfPrerequisite,
					Message:  "beat lists itself as a prerequisite",
					Beat:     beat.ID,
				})
				continue
			}
			dep, ok := byID[prereq]
			if !ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     codeUnknownPrerequisite,
					Message:  fmt.Sprintf("prerequisite %s does not resolve to any beat", prereq),
					Beat:     beat.ID,
				})
				continue
			}
			if beat.Status == entity.BeatCompleted && dep.Status != entity.BeatCompleted && dep.Status != entity.BeatSkipped {
				issues = append(issues, Issue{
					Severity: SeverityWarn,
					Code:     codePrereqIncomplete,
					Message:  fmt.Sprintf("beat completed before its prerequisite %s", prereq),
					Beat:     beat.ID,
				})
			}
		}
	}

	return &Report{Issues: issues}
}
