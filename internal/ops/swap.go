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

const bytesPerGB = int64(1) << 30

// SwapOp converges the swap file toward the desired size. An undersized
// file is removed and recreated; a file at or above the desired size is
// left alone.
type SwapOp struct {
	cfg config.Settings
	run runner.Runner
}

// NewSwap creates the swap convergence operation.
func NewSwap(cfg config.Settings, run runner.Runner) *SwapOp {
	return &SwapOp{cfg: cfg, run: run}
}

func (o *SwapOp) Name() string { return "swap" }

func (o *SwapOp) Enabled() (bool, string) {
	if o.cfg.DisableSwap {
		return false, "swap management disabled by configuration"
	}
	return true, ""
}

type swapEvalData struct {
	Exists     bool
	ObservedGB int64
}

func (o *SwapOp) Evaluate(ctx context.Context) (*model.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, jperrors.NewStateError(o.Name(), err)
	}

	exists := probe.PathExists(o.cfg.SwapFile)
	sizeBytes, err := probe.FileSize(o.cfg.SwapFile)
	if err != nil {
		return nil, jperrors.NewStateError(o.Name(), err)
	}

	observedGB := sizeBytes / bytesPerGB
	data := &swapEvalData{Exists: exists, ObservedGB: observedGB}
	observed := fmt.Sprintf("%dGB at %s", observedGB, o.cfg.SwapFile)

	if exists && observedGB >= int64(o.cfg.SwapSizeGB) {
		return &model.EvaluationResult{
			Resource:       o.Name(),
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("swap file is %dGB, desired %dGB", observedGB, o.cfg.SwapSizeGB),
			Observed:       observed,
			InternalData:   data,
		}, nil
	}

	if exists {
		return &model.EvaluationResult{
			Resource:       o.Name(),
			CurrentState:   model.StatusDrifted,
			RequiresAction: true,
			Message:        fmt.Sprintf("swap file is %dGB, smaller than desired %dGB", observedGB, o.cfg.SwapSizeGB),
			Observed:       observed,
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		Resource:       o.Name(),
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        fmt.Sprintf("no swap file at %s, desired %dGB", o.cfg.SwapFile, o.cfg.SwapSizeGB),
		Observed:       observed,
		InternalData:   data,
	}, nil
}

func (o *SwapOp) Apply(ctx context.Context, eval *model.EvaluationResult) (*model.StepResult, error) {
	data, ok := eval.InternalData.(*swapEvalData)
	if !ok || data == nil {
		return failed(o.Name(), fmt.Errorf("evaluation data missing"))
	}

	// An undersized file is removed first so two swap files never coexist.
	if data.Exists {
		if err := o.run.Run(ctx, "swapoff", "-a"); err != nil {
			return failed(o.Name(), err)
		}
		if err := o.run.Remove(o.cfg.SwapFile); err != nil {
			return failed(o.Name(), err)
		}
	}

	size := fmt.Sprintf("%dG", o.cfg.SwapSizeGB)
	if err := o.run.Run(ctx, "fallocate", "-l", size, o.cfg.SwapFile); err != nil {
		// fallocate is unsupported on some filesystems; fall back to dd.
		script := fmt.Sprintf("dd if=/dev/zero of=%s bs=1M count=%d status=none", o.cfg.SwapFile, o.cfg.SwapSizeGB*1024)
		if err := o.run.RunShell(ctx, script); err != nil {
			return failed(o.Name(), err)
		}
	}
	if err := o.run.Run(ctx, "chmod", "600", o.cfg.SwapFile); err != nil {
		return failed(o.Name(), err)
	}
	if err := o.run.Run(ctx, "mkswap", o.cfg.SwapFile); err != nil {
		return failed(o.Name(), err)
	}
	if err := o.run.Run(ctx, "swapon", o.cfg.SwapFile); err != nil {
		return failed(o.Name(), err)
	}

	entry := fmt.Sprintf("%s swap swap defaults 0 0", o.cfg.SwapFile)
	present, err := probe.FileContains(o.cfg.FstabPath, entry)
	if err != nil {
		return failed(o.Name(), err)
	}
	if !present {
		if err := o.run.AppendLines(o.cfg.FstabPath, []string{entry}, ""); err != nil {
			return failed(o.Name(), err)
		}
	}

	status := model.StatusSuccess
	if o.run.Mode() == runner.ModeDryRun {
		status = model.StatusWouldRun
	}
	return &model.StepResult{
		Resource: o.Name(),
		Status:   status,
		Message:  fmt.Sprintf("swap file set to %dGB", o.cfg.SwapSizeGB),
	}, nil
}

func failed(resource string, err error) (*model.StepResult, error) {
	wrapped := jperrors.NewExecutionError(resource, err)
	return &model.StepResult{
		Resource: resource,
		Status:   model.StatusFailed,
		Message:  err.Error(),
		Error:    wrapped,
	}, wrapped
}
