package ops

import (
	"context"

	"github.com/nomad-traveller/jetsonprep/internal/model"
)

// Operation is a self-contained check-then-act unit for one managed
// resource. Evaluate is strictly read-only; Apply runs only when Evaluate
// reported that action is required.
type Operation interface {
	// Name identifies the managed resource in reports and logs.
	Name() string

	// Enabled reports whether the operation should run at all. A false
	// value carries the reason it is skipped.
	Enabled() (bool, string)

	// Evaluate probes current state against desired state without mutating
	// anything.
	Evaluate(ctx context.Context) (*model.EvaluationResult, error)

	// Apply converges the resource toward the desired state. Mutations are
	// dispatched through the configured Runner, which enforces dry-run
	// purity.
	Apply(ctx context.Context, eval *model.EvaluationResult) (*model.StepResult, error)
}
