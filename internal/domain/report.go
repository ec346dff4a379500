package domain

import "time"

// RunState names one stage of the orchestrated run.
type RunState string

const (
	StateStart      RunState = "start"
	StateFetching   RunState = "fetching"
	StateExtracting RunState = "extracting"
	StateClustering RunState = "clustering"
	StateMerging    RunState = "merging"
	StateRanking    RunState = "ranking"
	StateAssembling RunState = "assembling"
	StateDelivering RunState = "delivering"
	StateCompleted  RunState = "completed"
	StateAborted    RunState = "aborted"
)

// FailureKind classifies recorded failures for reporting.
type FailureKind string

const (
	FailureMissing      FailureKind = "missing"
	FailureEmpty        FailureKind = "empty"
	FailureExtraction   FailureKind = "extraction"
	FailureMerge        FailureKind = "merge"
	FailureSignificance FailureKind = "significance"
	FailureAudio        FailureKind = "audio"
	FailureDelivery     FailureKind = "delivery"
)

// SourceFailure records one source that contributed nothing, with the reason.
type SourceFailure struct {
	Source string
	Kind   FailureKind
	Reason string
}

// ClusterFailure records one cluster dropped during merge.
type ClusterFailure struct {
	ClusterID string
	Reason    string
}

// RunError records a run-level degradation that did not abort the run.
type RunError struct {
	Kind   FailureKind
	Reason string
}

// StateChange is one transition in the run's state trail.
type StateChange struct {
	State RunState
	At    time.Time
}

// RunReport is the per-run bookkeeping built by the orchestrator. It is an
// explicit value handed through the stages, never shared package state, so
// repeated or concurrent runs cannot interfere.
type RunReport struct {
	RunID      string
	Date       time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	State      RunState
	Trail      []StateChange

	SourcesAttempted []string
	SourceFailures   []SourceFailure
	ClusterFailures  []ClusterFailure
	RunErrors        []RunError

	TotalCandidates int
	TotalClusters   int
	TotalItems      int
	Delivered       bool
	AudioIncluded   bool
}

// NewRunReport starts the bookkeeping for one run.
func NewRunReport(id string, date time.Time) *RunReport {
	r := &RunReport{
		RunID:     id,
		Date:      date,
		StartedAt: time.Now(),
	}
	r.Transition(StateStart)
	return r
}

// Transition moves the run to the next state and appends it to the trail.
func (r *RunReport) Transition(state RunState) {
	r.State = state
	r.Trail = append(r.Trail, StateChange{State: state, At: time.Now()})
}

// RecordSourceFailure notes a source that contributed nothing this run.
func (r *RunReport) RecordSourceFailure(source string, kind FailureKind, reason string) {
	r.SourceFailures = append(r.SourceFailures, SourceFailure{Source: source, Kind: kind, Reason: reason})
}

// RecordClusterFailure notes a cluster dropped during merge.
func (r *RunReport) RecordClusterFailure(clusterID, reason string) {
	r.ClusterFailures = append(r.ClusterFailures, ClusterFailure{ClusterID: clusterID, Reason: reason})
}

// RecordRunError notes a run-level degradation that did not abort the run.
func (r *RunReport) RecordRunError(kind FailureKind, reason string) {
	r.RunErrors = append(r.RunErrors, RunError{Kind: kind, Reason: reason})
}

// FailedSourceNames lists failed sources in recording order.
func (r *RunReport) FailedSourceNames() []string {
	names := make([]string, 0, len(r.SourceFailures))
	for _, f := range r.SourceFailures {
		names = append(names, f.Source)
	}
	return names
}

// MissingSources lists sources whose document could not be found.
func (r *RunReport) MissingSources() []string {
	var names []string
	for _, f := range r.SourceFailures {
		if f.Kind == FailureMissing {
			names = append(names, f.Source)
		}
	}
	return names
}

// SucceededSources lists attempted sources that recorded no failure,
// preserving the attempt order.
func (r *RunReport) SucceededSources() []string {
	failed := make(map[string]bool, len(r.SourceFailures))
	for _, f := range r.SourceFailures {
		failed[f.Source] = true
	}
	var names []string
	for _, name := range r.SourcesAttempted {
		if !failed[name] {
			names = append(names, name)
		}
	}
	return names
}

// Aborted reports whether the run ended without delivering a digest.
func (r *RunReport) Aborted() bool {
	return r.State == StateAborted
}
