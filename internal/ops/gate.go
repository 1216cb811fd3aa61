package ops

import (
	"context"
	"fmt"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

// CUDAGate decides whether the CUDA-dependent operations (symlink and
// environment lines) may run at all. Evidence is OR-combined: either the
// toolkit package is registered or nvcc reports the expected release.
type CUDAGate struct {
	cfg    config.Settings
	prober *probe.Prober
}

// NewCUDAGate creates the toolchain-evidence gate.
func NewCUDAGate(cfg config.Settings, prober *probe.Prober) *CUDAGate {
	return &CUDAGate{cfg: cfg, prober: prober}
}

// Check reports whether the gate is open and why.
func (g *CUDAGate) Check(ctx context.Context) (bool, string, error) {
	ok, err := g.prober.PackageInstalled(ctx, g.cfg.CUDAPackage)
	if err != nil {
		return false, "", jperrors.NewStateError("cuda-gate", err)
	}
	if ok {
		return true, fmt.Sprintf("package %s is installed", g.cfg.CUDAPackage), nil
	}

	ok, err = g.prober.ToolReportsVersion(ctx, "nvcc", []string{"--version"}, g.cfg.NvccRelease)
	if err != nil {
		return false, "", jperrors.NewStateError("cuda-gate", err)
	}
	if ok {
		return true, fmt.Sprintf("nvcc reports %s", g.cfg.NvccRelease), nil
	}

	return false, fmt.Sprintf("no evidence of CUDA toolchain (%s not installed, nvcc does not report %s)",
		g.cfg.CUDAPackage, g.cfg.NvccRelease), nil
}
