package errors

import (
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	inner := goerrors.New("boom")
	err := NewValidationError("swap_size", "must be positive", inner)

	require.Contains(t, err.Error(), "swap_size")
	require.Contains(t, err.Error(), "must be positive")
	require.ErrorIs(t, err, inner)
}

func TestExecutionError(t *testing.T) {
	t.Parallel()

	inner := goerrors.New("exit status 100")
	err := NewExecutionError("packages", inner)

	require.Contains(t, err.Error(), "packages")
	require.ErrorIs(t, err, inner)
}

func TestStateError(t *testing.T) {
	t.Parallel()

	t.Run("detected through wrapping", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("probing: %w", NewStateError("swap", goerrors.New("permission denied")))
		require.True(t, IsState(err))
	})

	t.Run("plain errors are not state errors", func(t *testing.T) {
		t.Parallel()
		require.False(t, IsState(goerrors.New("nope")))
	})
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("ggml.c", []string{"./ggml.c", "./src/ggml.c"})
	require.Contains(t, err.Error(), "ggml.c")
	require.Contains(t, err.Error(), "2 locations")
	require.True(t, IsNotFound(err))
	require.False(t, IsNotFound(goerrors.New("other")))
}

func TestCorruptionError(t *testing.T) {
	t.Parallel()

	inner := goerrors.New("marker missing after write")
	err := NewCorruptionError("/tmp/ggml.c", "/tmp/ggml.c.20240101T000000.bak", inner)

	require.Contains(t, err.Error(), "/tmp/ggml.c.20240101T000000.bak")
	require.ErrorIs(t, err, inner)
}
