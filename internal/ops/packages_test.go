package ops

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/model"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
	"github.com/nomad-traveller/jetsonprep/internal/runner"
	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

func packagesProber(installed map[string]bool) *probe.Prober {
	return probe.NewWithHooks(func(_ context.Context, name string, args ...string) (bool, string, error) {
		if name != "dpkg-query" || len(args) != 2 {
			return false, "", errors.New("unexpected query")
		}
		return installed[args[1]], "", nil
	}, nil)
}

func TestPackagesEvaluate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := config.Defaults()
	cfg.Packages = []string{"build-essential", "cmake", "git", "curl", "libcurl4-openssl-dev", "python3-pip"}

	t.Run("all installed requires no action", func(t *testing.T) {
		t.Parallel()
		installed := map[string]bool{}
		for _, p := range cfg.Packages {
			installed[p] = true
		}
		op := NewPackages(cfg, runner.NewRecorder(runner.ModeReal), packagesProber(installed))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)
		require.Equal(t, model.StatusSatisfied, eval.CurrentState)
		require.False(t, eval.RequiresAction)
	})

	t.Run("missing subset reported", func(t *testing.T) {
		t.Parallel()
		installed := map[string]bool{
			"build-essential": true, "git": true, "curl": true, "python3-pip": true,
		}
		op := NewPackages(cfg, runner.NewRecorder(runner.ModeReal), packagesProber(installed))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)
		require.Equal(t, model.StatusMissing, eval.CurrentState)
		require.Contains(t, eval.Message, "cmake")
		require.Contains(t, eval.Message, "libcurl4-openssl-dev")
	})

	t.Run("probe failure is a state error", func(t *testing.T) {
		t.Parallel()
		broken := probe.NewWithHooks(func(context.Context, string, ...string) (bool, string, error) {
			return false, "", errors.New("dpkg database locked")
		}, nil)
		op := NewPackages(cfg, runner.NewRecorder(runner.ModeReal), broken)

		_, err := op.Evaluate(ctx)
		require.Error(t, err)
		require.True(t, jperrors.IsState(err))
	})
}

func TestPackagesApply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := config.Defaults()
	cfg.Packages = []string{"build-essential", "cmake", "git", "curl", "libcurl4-openssl-dev", "python3-pip"}

	t.Run("one batched install naming only the missing two", func(t *testing.T) {
		t.Parallel()
		installed := map[string]bool{
			"build-essential": true, "git": true, "curl": true, "python3-pip": true,
		}
		rec := runner.NewRecorder(runner.ModeReal)
		op := NewPackages(cfg, rec, packagesProber(installed))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)

		res, err := op.Apply(ctx, eval)
		require.NoError(t, err)
		require.Equal(t, model.StatusSuccess, res.Status)

		require.Equal(t, []string{
			"apt-get update",
			"apt-get install -y cmake libcurl4-openssl-dev",
		}, rec.Commands)
	})

	t.Run("update phase disabled", func(t *testing.T) {
		t.Parallel()
		local := cfg
		local.DisableUpdate = true
		rec := runner.NewRecorder(runner.ModeReal)
		op := NewPackages(local, rec, packagesProber(map[string]bool{}))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)

		_, err = op.Apply(ctx, eval)
		require.NoError(t, err)
		require.NotContains(t, rec.Commands, "apt-get update")
		require.Len(t, rec.Commands, 1)
	})

	t.Run("install failure recorded", func(t *testing.T) {
		t.Parallel()
		local := cfg
		local.DisableUpdate = true
		rec := runner.NewRecorder(runner.ModeReal)
		rec.Fail = map[string]bool{
			"apt-get install -y " + "build-essential cmake git curl libcurl4-openssl-dev python3-pip": true,
		}
		op := NewPackages(local, rec, packagesProber(map[string]bool{}))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)

		res, err := op.Apply(ctx, eval)
		require.Error(t, err)
		require.Equal(t, model.StatusFailed, res.Status)
	})
}
