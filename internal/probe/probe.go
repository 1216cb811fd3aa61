package probe

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/nomad-traveller/jetsonprep/internal/fileio"
)

// Probes are strictly read-only. They run in every mode, including
// dry-run, because observing state is never a mutation.

// CommandQuery runs a read-only command and reports whether it exited
// zero, along with its combined output. A non-zero exit is an answer
// ("not installed"), not an error; err is reserved for failures that
// prevent the query from running at all.
type CommandQuery func(ctx context.Context, name string, args ...string) (bool, string, error)

// Prober answers "is this already satisfied?" questions against the host.
// The command and path lookups are injectable so tests never depend on the
// host's package database.
type Prober struct {
	query    CommandQuery
	lookPath func(string) (string, error)
}

// New creates a Prober backed by the real host.
func New() *Prober {
	return &Prober{
		query:    execQuery,
		lookPath: exec.LookPath,
	}
}

// NewWithHooks creates a Prober with substituted lookups for tests.
func NewWithHooks(query CommandQuery, lookPath func(string) (string, error)) *Prober {
	p := New()
	if query != nil {
		p.query = query
	}
	if lookPath != nil {
		p.lookPath = lookPath
	}
	return p
}

func execQuery(ctx context.Context, name string, args ...string) (bool, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return true, out.String(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, out.String(), nil
	}
	return false, out.String(), err
}

// PackageInstalled reports whether the named package is registered with
// dpkg.
func (p *Prober) PackageInstalled(ctx context.Context, name string) (bool, error) {
	ok, _, err := p.query(ctx, "dpkg-query", "-W", name)
	return ok, err
}

// SnapInstalled reports whether the named snap is registered. A host
// without snapd simply has no snaps.
func (p *Prober) SnapInstalled(ctx context.Context, name string) (bool, error) {
	if _, err := p.lookPath("snap"); err != nil {
		return false, nil
	}
	ok, _, err := p.query(ctx, "snap", "list", name)
	return ok, err
}

// CommandOnPath reports whether name resolves on the execution path.
func (p *Prober) CommandOnPath(name string) bool {
	_, err := p.lookPath(name)
	return err == nil
}

// ToolReportsVersion runs a version-reporting command and checks its
// output for the expected release string.
func (p *Prober) ToolReportsVersion(ctx context.Context, tool string, args []string, want string) (bool, error) {
	if _, err := p.lookPath(tool); err != nil {
		return false, nil
	}
	ok, out, err := p.query(ctx, tool, args...)
	if err != nil {
		return false, err
	}
	return ok && strings.Contains(out, want), nil
}

// FileSize observes the size of the file at path in bytes. A missing file
// is observed as zero, not as an error.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}

// PathExists reports whether any filesystem entry exists at path,
// including a dangling symlink.
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FileContainsLine reports whether the file at path contains line as an
// exact whole line. Substring matches and near-identical variants do not
// count. A missing file contains nothing.
func FileContainsLine(path, line, encodingName string) (bool, error) {
	state, err := fileio.ReadFileState(path, encodingName)
	if err != nil {
		return false, err
	}
	for _, existing := range state.Lines {
		if existing == line {
			return true, nil
		}
	}
	return false, nil
}

// FileContains reports whether the file at path contains substr anywhere.
// A missing file contains nothing.
func FileContains(path, substr string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return strings.Contains(string(data), substr), nil
}
