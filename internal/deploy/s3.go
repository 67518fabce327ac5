package deploy

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/olynch/presentations/internal/config"
	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
)

const (
	s3Scheme      = "s3://"
	defaultRegion = "us-east-1"
)

// ObjectAPI is the part of the S3 client the mirror uses.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type remoteObject struct {
	size     int64
	modified time.Time
}

// S3Mirror uploads an output directory to a bucket prefix. Like rsync -u it
// skips files whose remote copy has the same size and is not older, and it
// never deletes remote objects.
type S3Mirror struct {
	client ObjectAPI
	bucket string
	prefix string
	logger logging.Logger
}

// ParseS3URL splits s3://bucket/some/prefix into its bucket and key prefix.
// The prefix has no leading or trailing slash.
func ParseS3URL(dest string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(dest, s3Scheme)
	if !ok {
		return "", "", errors.NewConfigError(errors.ErrCodeDeployTarget, "not an s3:// destination: "+dest, nil)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.NewConfigError(errors.ErrCodeDeployTarget, "s3 destination has no bucket: "+dest, nil)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// NewS3Mirror loads AWS configuration and creates a mirror for dest.
func NewS3Mirror(ctx context.Context, dest string, cfg *config.S3Config, logger logging.Logger) (*S3Mirror, error) {
	bucket, prefix, err := ParseS3URL(dest)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &config.S3Config{}
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeDeployTarget, "failed to load AWS config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3MirrorWithClient(client, bucket, prefix, logger), nil
}

// NewS3MirrorWithClient creates a mirror around an existing client.
func NewS3MirrorWithClient(client ObjectAPI, bucket, prefix string, logger logging.Logger) *S3Mirror {
	if logger == nil {
		logger = logging.Discard()
	}
	return &S3Mirror{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

func (m *S3Mirror) key(rel string) string {
	rel = filepath.ToSlash(rel)
	if m.prefix == "" {
		return rel
	}
	return path.Join(m.prefix, rel)
}

func (m *S3Mirror) dest() string {
	return s3Scheme + path.Join(m.bucket, m.prefix)
}

// Deploy uploads every regular file under dir that is missing or stale in
// the bucket.
func (m *S3Mirror) Deploy(ctx context.Context, dir string) error {
	m.logger.Info(ctx, "deploying", "dest", m.dest())

	remote, err := m.list(ctx)
	if err != nil {
		return err
	}

	var uploaded, skipped int
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := m.key(rel)

		if obj, ok := remote[key]; ok && obj.size == info.Size() && !info.ModTime().After(obj.modified) {
			skipped++
			return nil
		}

		if err := m.put(ctx, p, key, info.Size()); err != nil {
			return err
		}
		uploaded++
		m.logger.Debug(ctx, "uploaded", "key", key, "bytes", info.Size())
		return nil
	})
	if err != nil {
		var de *errors.DeckError
		if errors.As(err, &de) {
			return de
		}
		return errors.NewDeployError(errors.ErrCodeDeployFailed, "walking output directory", err).WithPath(dir)
	}

	m.logger.Info(ctx, "deploy complete", "dest", m.dest(), "uploaded", uploaded, "unchanged", skipped)
	return nil
}

func (m *S3Mirror) list(ctx context.Context) (map[string]remoteObject, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(m.bucket)}
	if m.prefix != "" {
		input.Prefix = aws.String(m.prefix + "/")
	}

	objects := make(map[string]remoteObject)
	paginator := s3.NewListObjectsV2Paginator(m.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.NewDeployError(errors.ErrCodeDeployFailed, "failed to list bucket", err).
				WithContext("dest", m.dest())
		}
		for _, obj := range page.Contents {
			objects[aws.ToString(obj.Key)] = remoteObject{
				size:     aws.ToInt64(obj.Size),
				modified: aws.ToTime(obj.LastModified),
			}
		}
	}
	return objects, nil
}

func (m *S3Mirror) put(ctx context.Context, file, key string, size int64) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeReadFailed, "could not open file for upload", err).WithPath(file)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := m.client.PutObject(ctx, input); err != nil {
		return errors.NewDeployError(errors.ErrCodeDeployFailed, "failed to upload "+key, err).
			WithContext("dest", m.dest())
	}
	return nil
}
