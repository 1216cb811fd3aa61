package runner

import (
	"context"
	"fmt"
	"strings"
)

// Recorder is a Runner that records every dispatched action instead of
// touching the host. Operations and the engine are tested against it.
type Recorder struct {
	RecordedMode Mode

	// Commands collects rendered Run/RunShell invocations in order.
	Commands []string
	// Symlinks collects "oldname -> newname" pairs.
	Symlinks []string
	// Removed collects removed paths.
	Removed []string
	// Appended collects "path: line" entries.
	Appended []string

	// Fail, when set, is consulted per rendered command; a true value makes
	// that command return an error.
	Fail map[string]bool
}

var _ Runner = (*Recorder)(nil)

// NewRecorder creates a Recorder reporting the given mode.
func NewRecorder(mode Mode) *Recorder {
	return &Recorder{RecordedMode: mode}
}

func (r *Recorder) Mode() Mode {
	return r.RecordedMode
}

func (r *Recorder) Run(_ context.Context, name string, args ...string) error {
	rendered := strings.Join(append([]string{name}, args...), " ")
	r.Commands = append(r.Commands, rendered)
	if r.Fail[rendered] {
		return fmt.Errorf("command failed: %s", rendered)
	}
	return nil
}

func (r *Recorder) RunShell(_ context.Context, script string) error {
	r.Commands = append(r.Commands, script)
	if r.Fail[script] {
		return fmt.Errorf("command failed: %s", script)
	}
	return nil
}

func (r *Recorder) Symlink(oldname, newname string) error {
	r.Symlinks = append(r.Symlinks, oldname+" -> "+newname)
	return nil
}

func (r *Recorder) Remove(path string) error {
	r.Removed = append(r.Removed, path)
	return nil
}

func (r *Recorder) AppendLines(path string, lines []string, _ string) error {
	for _, line := range lines {
		r.Appended = append(r.Appended, path+": "+line)
	}
	return nil
}

// MutationCount reports how many mutating actions were dispatched.
func (r *Recorder) MutationCount() int {
	return len(r.Commands) + len(r.Symlinks) + len(r.Removed) + len(r.Appended)
}
