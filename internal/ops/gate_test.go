package ops

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
)

func gateProber(pkgInstalled, nvccPresent bool, nvccOutput string) *probe.Prober {
	return probe.NewWithHooks(
		func(_ context.Context, name string, _ ...string) (bool, string, error) {
			switch name {
			case "dpkg-query":
				return pkgInstalled, "", nil
			case "nvcc":
				return true, nvccOutput, nil
			default:
				return false, "", errors.New("unexpected query: " + name)
			}
		},
		func(name string) (string, error) {
			if name == "nvcc" && nvccPresent {
				return "/usr/local/cuda/bin/nvcc", nil
			}
			return "", errors.New("not found")
		},
	)
}

func TestCUDAGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := config.Defaults()

	t.Run("open via toolkit package", func(t *testing.T) {
		t.Parallel()
		gate := NewCUDAGate(cfg, gateProber(true, false, ""))
		open, reason, err := gate.Check(ctx)
		require.NoError(t, err)
		require.True(t, open)
		require.Contains(t, reason, cfg.CUDAPackage)
	})

	t.Run("open via nvcc version report", func(t *testing.T) {
		t.Parallel()
		gate := NewCUDAGate(cfg, gateProber(false, true, "Cuda compilation tools, release 10.2, V10.2.300"))
		open, reason, err := gate.Check(ctx)
		require.NoError(t, err)
		require.True(t, open)
		require.Contains(t, reason, "nvcc")
	})

	t.Run("closed when neither evidence is found", func(t *testing.T) {
		t.Parallel()
		gate := NewCUDAGate(cfg, gateProber(false, false, ""))
		open, reason, err := gate.Check(ctx)
		require.NoError(t, err)
		require.False(t, open)
		require.Contains(t, reason, "no evidence")
	})

	t.Run("closed when nvcc reports a different release", func(t *testing.T) {
		t.Parallel()
		gate := NewCUDAGate(cfg, gateProber(false, true, "Cuda compilation tools, release 11.4, V11.4.315"))
		open, _, err := gate.Check(ctx)
		require.NoError(t, err)
		require.False(t, open)
	})
}
