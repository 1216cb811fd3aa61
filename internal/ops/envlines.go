package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/model"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
	"github.com/nomad-traveller/jetsonprep/internal/runner"
	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

// EnvLinesOp appends the canonical CUDA environment declarations to the
// shell profile. Presence is decided by exact whole-line match only: a
// line that merely resembles the canonical one (casing, whitespace) does
// not count, so the canonical line is still appended.
type EnvLinesOp struct {
	cfg config.Settings
	run runner.Runner
}

// NewEnvLines creates the environment-line convergence operation.
func NewEnvLines(cfg config.Settings, run runner.Runner) *EnvLinesOp {
	return &EnvLinesOp{cfg: cfg, run: run}
}

func (o *EnvLinesOp) Name() string { return "env-lines" }

func (o *EnvLinesOp) Enabled() (bool, string) { return true, "" }

type envLinesEvalData struct {
	Missing []string
}

func (o *EnvLinesOp) Evaluate(ctx context.Context) (*model.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, jperrors.NewStateError(o.Name(), err)
	}

	var missing []string
	for _, line := range o.cfg.EnvLines {
		present, err := probe.FileContainsLine(o.cfg.ProfilePath, line, o.cfg.ProfileEncoding)
		if err != nil {
			return nil, jperrors.NewStateError(o.Name(), err)
		}
		if !present {
			missing = append(missing, line)
		}
	}

	data := &envLinesEvalData{Missing: missing}

	if len(missing) == 0 {
		return &model.EvaluationResult{
			Resource:       o.Name(),
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("all %d environment lines present in %s", len(o.cfg.EnvLines), o.cfg.ProfilePath),
			Observed:       "all lines present",
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		Resource:       o.Name(),
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("%d environment lines missing from %s", len(missing), o.cfg.ProfilePath),
		Observed:       strings.Join(missing, "; "),
		InternalData:   data,
	}, nil
}

func (o *EnvLinesOp) Apply(ctx context.Context, eval *model.EvaluationResult) (*model.StepResult, error) {
	data, ok := eval.InternalData.(*envLinesEvalData)
	if !ok || data == nil {
		return failed(o.Name(), fmt.Errorf("evaluation data missing"))
	}

	if err := o.run.AppendLines(o.cfg.ProfilePath, data.Missing, o.cfg.ProfileEncoding); err != nil {
		return failed(o.Name(), err)
	}

	if o.run.Mode() == runner.ModeDryRun {
		return &model.StepResult{
			Resource: o.Name(),
			Status:   model.StatusWouldRun,
			Message:  fmt.Sprintf("would append %d lines to %s", len(data.Missing), o.cfg.ProfilePath),
		}, nil
	}

	// The running shell cannot be mutated from here; re-read the profile
	// to confirm the lines landed, then tell the user to reload it.
	for _, line := range data.Missing {
		present, err := probe.FileContainsLine(o.cfg.ProfilePath, line, o.cfg.ProfileEncoding)
		if err != nil {
			return failed(o.Name(), err)
		}
		if !present {
			return failed(o.Name(), fmt.Errorf("line %q missing from %s after append", line, o.cfg.ProfilePath))
		}
	}

	return &model.StepResult{
		Resource: o.Name(),
		Status:   model.StatusSuccess,
		Message:  fmt.Sprintf("appended %d lines; reload with 'source %s'", len(data.Missing), o.cfg.ProfilePath),
	}, nil
}
