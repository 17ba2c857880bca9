// Package repo prepares plugin and demo project checkouts
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/uepipe/uepipe/pkg/logger"
	"github.com/uepipe/uepipe/pkg/process"
	"github.com/uepipe/uepipe/pkg/utils"
)

var (
	// ErrRemoveFailed indicates the stale destination could not be deleted
	ErrRemoveFailed = errors.New("failed to remove directory")

	// ErrCloneFailed indicates git could not clone the repository
	ErrCloneFailed = errors.New("failed to clone repository")
)

//go:generate mockgen -destination=../mocks/mock_cloner.go -package=mocks github.com/uepipe/uepipe/pkg/repo Cloner

// Cloner clones a branch of a remote into a fresh directory
type Cloner interface {
	Clone(ctx context.Context, url, dest, branch string) error
}

// Preparer clones repositories with the git CLI
type Preparer struct {
	runner  process.Runner
	logger  logger.Logger
	gitPath string
	depth   int
}

// NewPreparer creates a Preparer that shells out to git through runner
func NewPreparer(runner process.Runner, log logger.Logger) *Preparer {
	return &Preparer{
		runner:  runner,
		logger:  log,
		gitPath: "git",
		depth:   1,
	}
}

// WithGit overrides the git executable
func (p *Preparer) WithGit(path string) *Preparer {
	p.gitPath = path
	return p
}

// Clone force-deletes dest (read-only entries included) and then performs a
// shallow clone of branch into it. No retry is attempted.
func (p *Preparer) Clone(ctx context.Context, url, dest, branch string) error {
	if utils.Exists(dest) {
		p.logger.Info("Removing existing checkout", logger.WithField("path", dest))
	}
	if err := utils.RemoveReadOnly(dest); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}

	args := []string{"clone", "--progress"}
	if p.depth > 0 {
		args = append(args, "--depth", fmt.Sprint(p.depth))
	}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dest)

	progress := logger.NewLineWriter(p.logger)
	defer progress.Close()

	cmd := process.Command{
		Tool:   "git",
		Path:   p.gitPath,
		Args:   args,
		Output: progress,
	}

	p.logger.Info("Cloning repository",
		logger.WithField("remote", url),
		logger.WithField("branch", branch))

	if err := process.RunChecked(ctx, p.runner, cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	p.logger.Success(fmt.Sprintf("Cloned %s", url), logger.WithField("path", dest))
	return nil
}
