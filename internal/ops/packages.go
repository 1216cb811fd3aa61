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

// PackagesOp installs the required toolchain packages. Each package is
// probed independently; installation is one batched call covering only the
// missing subset.
type PackagesOp struct {
	cfg    config.Settings
	run    runner.Runner
	prober *probe.Prober
}

// NewPackages creates the package convergence operation.
func NewPackages(cfg config.Settings, run runner.Runner, prober *probe.Prober) *PackagesOp {
	return &PackagesOp{cfg: cfg, run: run, prober: prober}
}

func (o *PackagesOp) Name() string { return "packages" }

func (o *PackagesOp) Enabled() (bool, string) { return true, "" }

type packagesEvalData struct {
	Installed []string
	Missing   []string
}

func (o *PackagesOp) Evaluate(ctx context.Context) (*model.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, jperrors.NewStateError(o.Name(), err)
	}

	var installed, missing []string
	for _, name := range o.cfg.Packages {
		ok, err := o.prober.PackageInstalled(ctx, name)
		if err != nil {
			return nil, jperrors.NewStateError(o.Name(), fmt.Errorf("query package %s: %w", name, err))
		}
		if ok {
			installed = append(installed, name)
		} else {
			missing = append(missing, name)
		}
	}

	data := &packagesEvalData{Installed: installed, Missing: missing}

	if len(missing) == 0 {
		return &model.EvaluationResult{
			Resource:       o.Name(),
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        "all packages installed: " + strings.Join(o.cfg.Packages, ", "),
			Observed:       fmt.Sprintf("%d/%d installed", len(installed), len(o.cfg.Packages)),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		Resource:       o.Name(),
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        "packages not installed: " + strings.Join(missing, ", "),
		Observed:       fmt.Sprintf("%d/%d installed", len(installed), len(o.cfg.Packages)),
		InternalData:   data,
	}, nil
}

func (o *PackagesOp) Apply(ctx context.Context, eval *model.EvaluationResult) (*model.StepResult, error) {
	data, ok := eval.InternalData.(*packagesEvalData)
	if !ok || data == nil {
		return failed(o.Name(), fmt.Errorf("evaluation data missing"))
	}

	if !o.cfg.DisableUpdate {
		if err := o.run.Run(ctx, "apt-get", "update"); err != nil {
			return failed(o.Name(), err)
		}
	}

	// One batched call for the whole missing subset. The package manager
	// may still partially apply it on failure; that outcome is reported,
	// not corrected, here.
	args := append([]string{"install", "-y"}, data.Missing...)
	if err := o.run.Run(ctx, "apt-get", args...); err != nil {
		return failed(o.Name(), err)
	}

	status := model.StatusSuccess
	if o.run.Mode() == runner.ModeDryRun {
		status = model.StatusWouldRun
	}
	return &model.StepResult{
		Resource: o.Name(),
		Status:   status,
		Message:  "installed packages: " + strings.Join(data.Missing, ", "),
	}, nil
}
