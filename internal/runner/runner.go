package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/nomad-traveller/jetsonprep/internal/fileio"
	"github.com/nomad-traveller/jetsonprep/internal/logger"
)

// Mode selects between real execution and dry-run simulation. It is fixed
// at startup and read by every dispatched action.
type Mode string

const (
	// ModeReal executes actions against the host.
	ModeReal Mode = "real"
	// ModeDryRun reports actions without performing them. A dry-run must
	// never perform a mutating system call.
	ModeDryRun Mode = "dry-run"
)

// Runner is the single dispatch point for host-mutating actions. Every
// convergence operation routes its mutations through a Runner so that
// dry-run purity holds globally and tests can substitute a recording fake.
//
// Read-only probes do not go through the Runner; they run in every mode.
type Runner interface {
	Mode() Mode

	// Run executes a command. A non-zero exit is surfaced as a hard
	// failure for the calling operation; there is no retry and no rollback
	// of partial effects.
	Run(ctx context.Context, name string, args ...string) error

	// RunShell executes a shell pipeline for actions that need redirection
	// or fallback chains.
	RunShell(ctx context.Context, script string) error

	// Symlink creates newname as a symbolic link to oldname.
	Symlink(oldname, newname string) error

	// Remove deletes the file at path.
	Remove(path string) error

	// AppendLines appends the given lines verbatim to the file at path,
	// preserving existing permissions and encoding.
	AppendLines(path string, lines []string, encodingName string) error
}

type hostRunner struct {
	mode Mode
	log  *logger.Logger
}

// New creates a Runner bound to the given mode.
func New(mode Mode, log *logger.Logger) Runner {
	return &hostRunner{mode: mode, log: log}
}

func (r *hostRunner) Mode() Mode {
	return r.mode
}

func (r *hostRunner) Run(ctx context.Context, name string, args ...string) error {
	rendered := strings.Join(append([]string{name}, args...), " ")
	if r.mode == ModeDryRun {
		r.log.Action(true, rendered)
		return nil
	}
	r.log.Action(false, rendered)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	return runStreaming(cmd)
}

func (r *hostRunner) RunShell(ctx context.Context, script string) error {
	if r.mode == ModeDryRun {
		r.log.Action(true, script)
		return nil
	}
	r.log.Action(false, script)

	shell, err := lookupShell()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, shell, "-c", script)
	cmd.Env = os.Environ()
	return runStreaming(cmd)
}

func (r *hostRunner) Symlink(oldname, newname string) error {
	if r.mode == ModeDryRun {
		r.log.Action(true, fmt.Sprintf("ln -s %s %s", oldname, newname))
		return nil
	}
	r.log.Action(false, fmt.Sprintf("ln -s %s %s", oldname, newname))
	return os.Symlink(oldname, newname)
}

func (r *hostRunner) Remove(path string) error {
	if r.mode == ModeDryRun {
		r.log.Action(true, "rm "+path)
		return nil
	}
	r.log.Action(false, "rm "+path)
	return os.Remove(path)
}

func (r *hostRunner) AppendLines(path string, lines []string, encodingName string) error {
	for _, line := range lines {
		rendered := fmt.Sprintf("append %q to %s", line, path)
		if r.mode == ModeDryRun {
			r.log.Action(true, rendered)
		} else {
			r.log.Action(false, rendered)
		}
	}
	if r.mode == ModeDryRun {
		return nil
	}

	state, err := fileio.ReadFileState(path, encodingName)
	if err != nil {
		return err
	}

	updated := append(append([]string{}, state.Lines...), lines...)
	content := fileio.JoinLines(updated, true)
	encoded, err := fileio.EncodeContent(content, encodingName)
	if err != nil {
		return err
	}

	return fileio.WriteAtomic(state.Path, encoded, state.Permissions)
}

// runStreaming wires the command's stdout/stderr through to the parent
// process while collecting output for error reporting.
func runStreaming(cmd *exec.Cmd) error {
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(os.Stdout, &stdoutBuf)
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderrBuf)

	if err := cmd.Run(); err != nil {
		combined := strings.TrimSpace(stderrBuf.String())
		if combined == "" {
			combined = strings.TrimSpace(stdoutBuf.String())
		}
		if combined != "" {
			return fmt.Errorf("%w: %s", err, combined)
		}
		return err
	}
	return nil
}

func lookupShell() (string, error) {
	if path, err := exec.LookPath("bash"); err == nil {
		return path, nil
	}
	if path, err := exec.LookPath("sh"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("no suitable shell found")
}
