package model

import "time"

// VerificationStatus classifies the observed state of a resource relative
// to its desired state.
type VerificationStatus string

const (
	// StatusSatisfied means the resource already matches the desired state.
	StatusSatisfied VerificationStatus = "satisfied"
	// StatusMissing means the resource is absent and must be created.
	StatusMissing VerificationStatus = "missing"
	// StatusDrifted means the resource exists but differs from the desired state.
	StatusDrifted VerificationStatus = "drifted"
	// StatusBlocked means the desired state cannot be reached (e.g. a source
	// artifact for the resource is absent).
	StatusBlocked VerificationStatus = "blocked"
	// StatusUnknown means the probe could not determine the current state.
	StatusUnknown VerificationStatus = "unknown"
)

// IsValid reports whether the status is one of the defined constants.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusSatisfied, StatusMissing, StatusDrifted, StatusBlocked, StatusUnknown:
		return true
	default:
		return false
	}
}

const (
	// StatusSuccess marks a mutating action that completed.
	StatusSuccess = "success"
	// StatusSkipped marks an operation that required no action or was
	// disabled by configuration.
	StatusSkipped = "skipped"
	// StatusFailed marks a mutating action that returned a failure.
	StatusFailed = "failed"
	// StatusWouldRun marks a dry-run outcome: the action was reported, not
	// performed.
	StatusWouldRun = "would_run"
)

// EvaluationResult is the outcome of a read-only probe of one resource.
// It is computed fresh on every invocation and never cached across runs;
// the host may have changed in between.
type EvaluationResult struct {
	// Resource names the managed resource ("swap", "packages", ...).
	Resource string

	// CurrentState classifies the observed state.
	CurrentState VerificationStatus

	// RequiresAction is true when Apply should run.
	RequiresAction bool

	// Message is a human-readable description of what was found.
	Message string

	// Observed is an optional rendering of the observed value (current swap
	// size, missing package list) for the final report.
	Observed string

	// InternalData carries probe results forward into Apply so the
	// operation does not recompute them.
	InternalData any
}

// StepResult captures the outcome of one convergence operation.
type StepResult struct {
	Resource  string
	Status    string
	Message   string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// Failed reports whether the operation ended in failure.
func (r StepResult) Failed() bool {
	return r.Status == StatusFailed
}
