package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/logger"
	"github.com/nomad-traveller/jetsonprep/internal/model"
	"github.com/nomad-traveller/jetsonprep/internal/ops"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
	"github.com/nomad-traveller/jetsonprep/internal/runner"
	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

// PlanEntry is one operation in the fixed execution order, optionally
// guarded by a prerequisite gate.
type PlanEntry struct {
	Op   ops.Operation
	Gate *ops.CUDAGate
}

// BuildPlan assembles the fixed-order convergence plan. The order matters:
// package installation must complete before the CUDA gate and the
// operations it guards are consulted.
func BuildPlan(cfg config.Settings, run runner.Runner, prober *probe.Prober) []PlanEntry {
	gate := ops.NewCUDAGate(cfg, prober)
	return []PlanEntry{
		{Op: ops.NewSwap(cfg, run)},
		{Op: ops.NewPackages(cfg, run, prober)},
		{Op: ops.NewVSCode(cfg, run, prober)},
		{Op: ops.NewCUDALink(cfg, run), Gate: gate},
		{Op: ops.NewEnvLines(cfg, run), Gate: gate},
	}
}

type gateVerdict struct {
	open   bool
	reason string
	err    error
}

// Run executes the plan strictly sequentially on a single goroutine.
// Operations mutate shared host resources (package database, mount table,
// profile file); the fixed order provides mutual exclusion in time without
// locking. A failed operation does not stop later independent operations;
// the first failure is returned after the whole plan has run.
func Run(ctx context.Context, plan []PlanEntry, log *logger.Logger) ([]model.StepResult, error) {
	results := make([]model.StepResult, 0, len(plan))
	verdicts := make(map[*ops.CUDAGate]gateVerdict)
	var firstErr error

	for _, entry := range plan {
		res := runEntry(ctx, entry, verdicts, log)
		res.Timestamp = time.Now()
		results = append(results, res)

		if res.Failed() && firstErr == nil {
			firstErr = res.Error
			if firstErr == nil {
				firstErr = jperrors.NewExecutionError(res.Resource, fmt.Errorf("%s", res.Message))
			}
		}
	}

	return results, firstErr
}

func runEntry(ctx context.Context, entry PlanEntry, verdicts map[*ops.CUDAGate]gateVerdict, log *logger.Logger) model.StepResult {
	op := entry.Op
	opLog := log.WithFields(map[string]any{"resource": op.Name()})
	start := time.Now()

	if enabled, reason := op.Enabled(); !enabled {
		opLog.Info("skipped: " + reason)
		return model.StepResult{Resource: op.Name(), Status: model.StatusSkipped, Message: reason, Duration: time.Since(start)}
	}

	if entry.Gate != nil {
		verdict, checked := verdicts[entry.Gate]
		if !checked {
			open, reason, err := entry.Gate.Check(ctx)
			verdict = gateVerdict{open: open, reason: reason, err: err}
			verdicts[entry.Gate] = verdict
		}
		if verdict.err != nil {
			opLog.Warn("gate check failed, skipping: " + verdict.err.Error())
			return model.StepResult{Resource: op.Name(), Status: model.StatusSkipped, Message: "gate state unknown: " + verdict.err.Error(), Duration: time.Since(start)}
		}
		if !verdict.open {
			opLog.Info("skipped: " + verdict.reason)
			return model.StepResult{Resource: op.Name(), Status: model.StatusSkipped, Message: verdict.reason, Duration: time.Since(start)}
		}
	}

	eval, err := op.Evaluate(ctx)
	if err != nil {
		if jperrors.IsState(err) {
			// Cannot determine state: warn and skip rather than guess.
			opLog.Warn(err.Error())
			return model.StepResult{Resource: op.Name(), Status: model.StatusSkipped, Message: err.Error(), Duration: time.Since(start)}
		}
		opLog.Error(err, "evaluation failed")
		return model.StepResult{Resource: op.Name(), Status: model.StatusFailed, Message: err.Error(), Error: err, Duration: time.Since(start)}
	}

	opLog.Info(fmt.Sprintf("probe verdict: %s (%s)", eval.CurrentState, eval.Message))

	if !eval.RequiresAction {
		return model.StepResult{Resource: op.Name(), Status: model.StatusSkipped, Message: eval.Message, Duration: time.Since(start)}
	}

	res, err := op.Apply(ctx, eval)
	if res == nil {
		res = &model.StepResult{Resource: op.Name(), Status: model.StatusFailed, Message: "apply returned no result", Error: err}
	}
	if err != nil {
		opLog.Error(err, "apply failed")
	}
	res.Duration = time.Since(start)
	return *res
}
