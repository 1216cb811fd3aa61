package ops

import (
	"context"
	"fmt"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/model"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
	"github.com/nomad-traveller/jetsonprep/internal/runner"
	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

// CUDALinkOp ensures the generic CUDA path points at the versioned
// install. Any existing entry at the generic path is left untouched,
// whatever it points to.
type CUDALinkOp struct {
	cfg config.Settings
	run runner.Runner
}

// NewCUDALink creates the CUDA symlink convergence operation.
func NewCUDALink(cfg config.Settings, run runner.Runner) *CUDALinkOp {
	return &CUDALinkOp{cfg: cfg, run: run}
}

func (o *CUDALinkOp) Name() string { return "cuda-link" }

func (o *CUDALinkOp) Enabled() (bool, string) { return true, "" }

func (o *CUDALinkOp) Evaluate(ctx context.Context) (*model.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, jperrors.NewStateError(o.Name(), err)
	}

	if probe.PathExists(o.cfg.CUDALinkPath) {
		return &model.EvaluationResult{
			Resource:       o.Name(),
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("%s already exists, leaving it untouched", o.cfg.CUDALinkPath),
			Observed:       "entry present",
		}, nil
	}

	if !probe.PathExists(o.cfg.CUDAVersionedDir) {
		return &model.EvaluationResult{
			Resource:       o.Name(),
			CurrentState:   model.StatusBlocked,
			RequiresAction: false,
			Message:        fmt.Sprintf("cannot satisfy: versioned CUDA directory %s is absent", o.cfg.CUDAVersionedDir),
			Observed:       "source directory missing",
		}, nil
	}

	return &model.EvaluationResult{
		Resource:       o.Name(),
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        fmt.Sprintf("would link %s -> %s", o.cfg.CUDALinkPath, o.cfg.CUDAVersionedDir),
		Observed:       "link missing",
	}, nil
}

func (o *CUDALinkOp) Apply(ctx context.Context, _ *model.EvaluationResult) (*model.StepResult, error) {
	if err := o.run.Symlink(o.cfg.CUDAVersionedDir, o.cfg.CUDALinkPath); err != nil {
		return failed(o.Name(), err)
	}

	status := model.StatusSuccess
	if o.run.Mode() == runner.ModeDryRun {
		status = model.StatusWouldRun
	}
	return &model.StepResult{
		Resource: o.Name(),
		Status:   status,
		Message:  fmt.Sprintf("linked %s -> %s", o.cfg.CUDALinkPath, o.cfg.CUDAVersionedDir),
	}, nil
}
