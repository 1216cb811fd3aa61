package ops

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/model"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
	"github.com/nomad-traveller/jetsonprep/internal/runner"
	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

const vscodeDownloadURL = "https://update.code.visualstudio.com/%s/linux-deb-%s/stable"

// VSCodeOp installs the VS Code editor when no existing install is
// detected. Presence is decided by an ordered list of independent
// heuristics evaluated short-circuit: any true verdict wins.
type VSCodeOp struct {
	cfg    config.Settings
	run    runner.Runner
	prober *probe.Prober
}

// NewVSCode creates the optional editor convergence operation.
func NewVSCode(cfg config.Settings, run runner.Runner, prober *probe.Prober) *VSCodeOp {
	return &VSCodeOp{cfg: cfg, run: run, prober: prober}
}

func (o *VSCodeOp) Name() string { return "vscode" }

func (o *VSCodeOp) Enabled() (bool, string) {
	if !o.cfg.InstallVSCode {
		return false, "vscode install disabled by configuration"
	}
	return true, ""
}

// presenceHeuristic is one independent detection check.
type presenceHeuristic struct {
	name  string
	check func(ctx context.Context) (bool, error)
}

func (o *VSCodeOp) heuristics() []presenceHeuristic {
	return []presenceHeuristic{
		{
			name: "launcher on path",
			check: func(context.Context) (bool, error) {
				return o.prober.CommandOnPath("code"), nil
			},
		},
		{
			name: "dpkg package registered",
			check: func(ctx context.Context) (bool, error) {
				return o.prober.PackageInstalled(ctx, "code")
			},
		},
		{
			name: "snap package registered",
			check: func(ctx context.Context) (bool, error) {
				return o.prober.SnapInstalled(ctx, "code")
			},
		},
	}
}

func (o *VSCodeOp) Evaluate(ctx context.Context) (*model.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, jperrors.NewStateError(o.Name(), err)
	}

	for _, h := range o.heuristics() {
		ok, err := h.check(ctx)
		if err != nil {
			return nil, jperrors.NewStateError(o.Name(), fmt.Errorf("%s heuristic: %w", h.name, err))
		}
		if ok {
			return &model.EvaluationResult{
				Resource:       o.Name(),
				CurrentState:   model.StatusSatisfied,
				RequiresAction: false,
				Message:        "vscode detected: " + h.name,
				Observed:       h.name,
			}, nil
		}
	}

	return &model.EvaluationResult{
		Resource:       o.Name(),
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        fmt.Sprintf("vscode not detected, would install version %s for %s", o.cfg.VSCodeVersion, o.cfg.Arch),
		Observed:       "not detected",
	}, nil
}

func (o *VSCodeOp) Apply(ctx context.Context, _ *model.EvaluationResult) (*model.StepResult, error) {
	url := fmt.Sprintf(vscodeDownloadURL, o.cfg.VSCodeVersion, o.cfg.Arch)
	deb := filepath.Join("/tmp", fmt.Sprintf("code_%s_%s.deb", o.cfg.VSCodeVersion, o.cfg.Arch))

	if err := o.run.Run(ctx, "curl", "-fL", "-o", deb, url); err != nil {
		return failed(o.Name(), err)
	}
	if err := o.run.Run(ctx, "apt-get", "install", "-y", deb); err != nil {
		return failed(o.Name(), err)
	}

	status := model.StatusSuccess
	if o.run.Mode() == runner.ModeDryRun {
		status = model.StatusWouldRun
	}
	return &model.StepResult{
		Resource: o.Name(),
		Status:   status,
		Message:  fmt.Sprintf("installed vscode %s (%s)", o.cfg.VSCodeVersion, o.cfg.Arch),
	}, nil
}
