package ops

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/logger"
	"github.com/nomad-traveller/jetsonprep/internal/model"
	"github.com/nomad-traveller/jetsonprep/internal/runner"
)

func envSettings(t *testing.T) config.Settings {
	t.Helper()
	cfg := config.Defaults()
	cfg.ProfilePath = filepath.Join(t.TempDir(), "bashrc")
	return cfg
}

func TestEnvLinesEvaluate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("all lines present is satisfied", func(t *testing.T) {
		t.Parallel()
		cfg := envSettings(t)
		content := cfg.EnvLines[0] + "\n" + cfg.EnvLines[1] + "\n"
		require.NoError(t, os.WriteFile(cfg.ProfilePath, []byte(content), 0o644))
		op := NewEnvLines(cfg, runner.NewRecorder(runner.ModeReal))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)
		require.Equal(t, model.StatusSatisfied, eval.CurrentState)
		require.False(t, eval.RequiresAction)
	})

	t.Run("superficially similar lines do not count", func(t *testing.T) {
		t.Parallel()
		cfg := envSettings(t)
		// trailing whitespace and different casing: not exact matches
		content := cfg.EnvLines[0] + " \n" + "EXPORT LD_LIBRARY_PATH=/usr/local/cuda/lib64:$LD_LIBRARY_PATH\n"
		require.NoError(t, os.WriteFile(cfg.ProfilePath, []byte(content), 0o644))
		op := NewEnvLines(cfg, runner.NewRecorder(runner.ModeReal))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)
		require.Equal(t, model.StatusDrifted, eval.CurrentState)
		data := eval.InternalData.(*envLinesEvalData)
		require.Equal(t, cfg.EnvLines, data.Missing, "both canonical lines still need appending")
	})

	t.Run("missing profile file means all lines missing", func(t *testing.T) {
		t.Parallel()
		cfg := envSettings(t)
		op := NewEnvLines(cfg, runner.NewRecorder(runner.ModeReal))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)
		require.True(t, eval.RequiresAction)
	})
}

func TestEnvLinesApply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("appends exactly the missing lines and verifies", func(t *testing.T) {
		t.Parallel()
		cfg := envSettings(t)
		require.NoError(t, os.WriteFile(cfg.ProfilePath, []byte(cfg.EnvLines[0]+"\n"), 0o644))

		log, err := logger.New(logger.Options{Level: "info", HumanReadable: false, Writer: &bytes.Buffer{}})
		require.NoError(t, err)
		op := NewEnvLines(cfg, runner.New(runner.ModeReal, log))

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)

		res, err := op.Apply(ctx, eval)
		require.NoError(t, err)
		require.Equal(t, model.StatusSuccess, res.Status)
		require.Contains(t, res.Message, "source "+cfg.ProfilePath)

		data, err := os.ReadFile(cfg.ProfilePath)
		require.NoError(t, err)
		require.Equal(t, cfg.EnvLines[0]+"\n"+cfg.EnvLines[1]+"\n", string(data))
	})

	t.Run("dry-run reports without writing", func(t *testing.T) {
		t.Parallel()
		cfg := envSettings(t)
		rec := runner.NewRecorder(runner.ModeDryRun)
		op := NewEnvLines(cfg, rec)

		eval, err := op.Evaluate(ctx)
		require.NoError(t, err)

		res, err := op.Apply(ctx, eval)
		require.NoError(t, err)
		require.Equal(t, model.StatusWouldRun, res.Status)
		_, statErr := os.Stat(cfg.ProfilePath)
		require.True(t, os.IsNotExist(statErr))
	})
}
