// Package source materializes the llama.cpp source tree that the
// compatibility patch operates on.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/nomad-traveller/jetsonprep/internal/model"
	"github.com/nomad-traveller/jetsonprep/internal/runner"
	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

// DefaultURL is the upstream repository cloned when no override is given.
const DefaultURL = "https://github.com/ggerganov/llama.cpp.git"

// DefaultDest is the checkout directory relative to the working directory.
const DefaultDest = "llama.cpp"

// Options configures Ensure.
type Options struct {
	Dest  string
	URL   string
	Ref   string // tag name; empty clones the default branch
	Depth int    // shallow clone when > 0
}

func (o Options) withDefaults() Options {
	if o.Dest == "" {
		o.Dest = DefaultDest
	}
	if o.URL == "" {
		o.URL = DefaultURL
	}
	return o
}

// Ensure converges the checkout: an existing repository at Dest is left
// exactly as found (no fetch, no pull — a stale checkout is the user's
// to update), anything else triggers a clone. Dry-run reports the clone
// that would happen without touching the filesystem.
func Ensure(ctx context.Context, mode runner.Mode, opts Options) (*model.StepResult, error) {
	opts = opts.withDefaults()
	resource := fmt.Sprintf("source:%s", opts.Dest)

	if _, err := git.PlainOpen(opts.Dest); err == nil {
		return &model.StepResult{
			Resource: resource,
			Status:   model.StatusSkipped,
			Message:  fmt.Sprintf("%s is already a git repository", opts.Dest),
		}, nil
	} else if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, jperrors.NewStateError(resource, err)
	}

	if info, err := os.Stat(opts.Dest); err == nil && info.IsDir() {
		entries, err := os.ReadDir(opts.Dest)
		if err != nil {
			return nil, jperrors.NewStateError(resource, err)
		}
		if len(entries) > 0 {
			return nil, jperrors.NewStateError(resource,
				fmt.Errorf("%s exists and is not empty but is not a git repository", opts.Dest))
		}
	}

	if mode == runner.ModeDryRun {
		return &model.StepResult{
			Resource: resource,
			Status:   model.StatusWouldRun,
			Message:  fmt.Sprintf("would clone %s into %s", opts.URL, opts.Dest),
		}, nil
	}

	cloneOpts := &git.CloneOptions{URL: opts.URL}
	if opts.Depth > 0 {
		cloneOpts.Depth = opts.Depth
	}
	if opts.Ref != "" {
		cloneOpts.ReferenceName = plumbing.NewTagReferenceName(opts.Ref)
		cloneOpts.SingleBranch = true
	}

	if err := os.MkdirAll(filepath.Dir(opts.Dest), 0o755); err != nil {
		return nil, jperrors.NewExecutionError(resource, err)
	}
	if _, err := git.PlainCloneContext(ctx, opts.Dest, false, cloneOpts); err != nil {
		return nil, jperrors.NewExecutionError(resource, fmt.Errorf("clone %s: %w", opts.URL, err))
	}

	return &model.StepResult{
		Resource: resource,
		Status:   model.StatusSuccess,
		Message:  fmt.Sprintf("cloned %s into %s", opts.URL, opts.Dest),
	}, nil
}
