package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
)

// rsyncFlags recurse, skip files newer on the receiver, and keep times.
var rsyncFlags = []string{"-rutv"}

// Rsync deploys with the rsync binary on PATH.
type Rsync struct {
	dest   string
	binary string
	stdout io.Writer
	stderr io.Writer
	logger logging.Logger
}

// NewRsync creates an rsync deployer for dest.
func NewRsync(dest string, logger logging.Logger) *Rsync {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Rsync{
		dest:   dest,
		binary: "rsync",
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: logger,
	}
}

// Args returns the argument list passed to rsync for dir. The trailing
// separator makes rsync copy the directory's contents, not the directory.
func (r *Rsync) Args(dir string) []string {
	src := strings.TrimRight(dir, string(filepath.Separator)) + string(filepath.Separator)
	args := append([]string{}, rsyncFlags...)
	return append(args, src, r.dest)
}

// Deploy runs rsync and waits for it to exit. rsync's own output is passed
// through to the terminal.
func (r *Rsync) Deploy(ctx context.Context, dir string) error {
	args := r.Args(dir)
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	r.logger.Info(ctx, "deploying", "dest", r.dest, "command", r.binary+" "+strings.Join(args, " "))

	err := cmd.Run()
	if err == nil {
		r.logger.Info(ctx, "deploy complete", "dest", r.dest)
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return errors.NewDeployError(errors.ErrCodeDeployFailed, "could not run "+r.binary, err).
			WithContext("dest", r.dest)
	}

	reason := "killed by signal"
	if code := exitErr.ExitCode(); code >= 0 {
		reason = fmt.Sprintf("exit code %d", code)
	}
	r.logger.Error(ctx, err, "rsync failed", "dest", r.dest, "reason", reason)

	return errors.NewDeployError(errors.ErrCodeDeployFailed, "rsync failed with "+reason, err).
		WithContext("dest", r.dest)
}
