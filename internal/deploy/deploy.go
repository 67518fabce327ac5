// Package deploy publishes a built output directory to its destination.
//
// Destinations of the form s3://bucket/prefix are mirrored with the AWS SDK;
// anything else is handed to rsync as-is, so user@host:/path, a local path
// and rsync:// URLs all work.
package deploy

import (
	"context"
	"strings"

	"github.com/olynch/presentations/internal/config"
	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
)

// Deployer copies the contents of dir to a remote destination.
type Deployer interface {
	Deploy(ctx context.Context, dir string) error
}

// New picks a Deployer for dest. s3cfg may be nil.
func New(ctx context.Context, dest string, s3cfg *config.S3Config, logger logging.Logger) (Deployer, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("deploy")

	dest = strings.TrimSpace(dest)
	if dest == "" {
		return nil, errors.NewConfigError(errors.ErrCodeDeployTarget, "no deploy destination configured", nil)
	}

	if strings.HasPrefix(dest, s3Scheme) {
		return NewS3Mirror(ctx, dest, s3cfg, logger)
	}

	return NewRsync(dest, logger), nil
}
