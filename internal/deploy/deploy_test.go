package deploy

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/olynch/presentations/internal/config"
	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedObject struct {
	body        string
	contentType string
	modified    time.Time
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]storedObject
	puts    []string
	listErr error
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]storedObject)}
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &s3.ListObjectsV2Output{}
	prefix := aws.ToString(in.Prefix)
	for key, obj := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.body))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	f.objects[key] = storedObject{
		body:        string(body),
		contentType: aws.ToString(in.ContentType),
		modified:    time.Now(),
	}
	f.puts = append(f.puts, key)
	return &s3.PutObjectOutput{}, nil
}

func writeOut(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func TestNewRequiresDestination(t *testing.T) {
	for _, dest := range []string{"", "   "} {
		_, err := New(context.Background(), dest, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	}
}

func TestNewPicksDeployer(t *testing.T) {
	d, err := New(context.Background(), "user@example.org:/var/www/talk", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Rsync{}, d)

	d, err = New(context.Background(), "s3://decks/talks/go", &config.S3Config{
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "eu-west-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		UsePathStyle:    true,
	}, nil)
	require.NoError(t, err)
	mirror, ok := d.(*S3Mirror)
	require.True(t, ok)
	assert.Equal(t, "decks", mirror.bucket)
	assert.Equal(t, "talks/go", mirror.prefix)
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		prefix string
		ok     bool
	}{
		{"s3://decks", "decks", "", true},
		{"s3://decks/", "decks", "", true},
		{"s3://decks/talks/2024/", "decks", "talks/2024", true},
		{"s3:///talks", "", "", false},
		{"host:/www", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, prefix, err := ParseS3URL(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestS3MirrorUploadsTree(t *testing.T) {
	dir := writeOut(t, map[string]string{
		"1.html":          "<p>one</p>",
		"2.html":          "<p>two</p>",
		"static/deck.css": "body{}",
	})
	client := newFakeS3()
	m := NewS3MirrorWithClient(client, "decks", "/talk/", logging.NewTestLogger())

	require.NoError(t, m.Deploy(context.Background(), dir))

	assert.ElementsMatch(t, []string{"talk/1.html", "talk/2.html", "talk/static/deck.css"}, client.puts)
	assert.Equal(t, "<p>one</p>", client.objects["talk/1.html"].body)
	assert.Contains(t, client.objects["talk/1.html"].contentType, "text/html")
	assert.Contains(t, client.objects["talk/static/deck.css"].contentType, "text/css")
}

func TestS3MirrorSkipsUnchanged(t *testing.T) {
	dir := writeOut(t, map[string]string{
		"1.html": "<p>one</p>",
		"2.html": "<p>two</p>",
	})
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "1.html"), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "2.html"), past, past))

	client := newFakeS3()
	client.objects["1.html"] = storedObject{body: "<p>one</p>", modified: time.Now()}
	client.objects["2.html"] = storedObject{body: "<p>old</p>", modified: time.Now()}
	client.objects["stale.html"] = storedObject{body: "x", modified: time.Now()}

	m := NewS3MirrorWithClient(client, "decks", "", nil)
	require.NoError(t, m.Deploy(context.Background(), dir))

	// Same size and not newer: 1.html is left alone. 2.html has the same
	// size but different content, so only a newer mtime would push it.
	assert.Empty(t, client.puts)

	now := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "2.html"), now, now))
	require.NoError(t, m.Deploy(context.Background(), dir))
	assert.Equal(t, []string{"2.html"}, client.puts)
	assert.Contains(t, client.objects, "stale.html", "remote extras are never deleted")
}

func TestS3MirrorUploadsOnSizeChange(t *testing.T) {
	dir := writeOut(t, map[string]string{"1.html": "<p>a longer page</p>"})
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "1.html"), past, past))

	client := newFakeS3()
	client.objects["1.html"] = storedObject{body: "<p>a</p>", modified: time.Now()}

	m := NewS3MirrorWithClient(client, "decks", "", nil)
	require.NoError(t, m.Deploy(context.Background(), dir))
	assert.Equal(t, []string{"1.html"}, client.puts)
}

func TestS3MirrorErrors(t *testing.T) {
	dir := writeOut(t, map[string]string{"1.html": "x"})

	client := newFakeS3()
	client.listErr = io.ErrUnexpectedEOF
	err := NewS3MirrorWithClient(client, "decks", "", nil).Deploy(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDeploy))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	client = newFakeS3()
	client.putErr = io.ErrClosedPipe
	err = NewS3MirrorWithClient(client, "decks", "", nil).Deploy(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDeploy))
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	err = NewS3MirrorWithClient(newFakeS3(), "decks", "", nil).Deploy(context.Background(), filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDeploy))
}

func TestRsyncArgs(t *testing.T) {
	r := NewRsync("host:/www/talk", nil)
	sep := string(filepath.Separator)
	assert.Equal(t, []string{"-rutv", "out" + sep, "host:/www/talk"}, r.Args("out"))
	assert.Equal(t, []string{"-rutv", "out" + sep, "host:/www/talk"}, r.Args("out"+sep))
}

func TestRsyncMissingBinary(t *testing.T) {
	r := NewRsync("host:/www", nil)
	r.binary = filepath.Join(t.TempDir(), "no-such-rsync")

	err := r.Deploy(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDeploy))
}

// fakeRsync writes a shell script that records its arguments and exits
// with code.
func fakeRsync(t *testing.T, code int) (binary, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	binary = filepath.Join(dir, "rsync")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\necho rsync-output\nexit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o755))
	return binary, argsFile
}

func TestRsyncSuccess(t *testing.T) {
	binary, argsFile := fakeRsync(t, 0)
	var stdout strings.Builder

	r := NewRsync("host:/www", logging.NewTestLogger())
	r.binary = binary
	r.stdout = &stdout
	r.stderr = io.Discard

	out := t.TempDir()
	require.NoError(t, r.Deploy(context.Background(), out))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "-rutv "+out+"/ host:/www\n", string(args))
	assert.Equal(t, "rsync-output\n", stdout.String())
}

func TestRsyncNonZeroExit(t *testing.T) {
	binary, _ := fakeRsync(t, 3)
	logger := logging.NewTestLogger()

	r := NewRsync("host:/www", logger)
	r.binary = binary
	r.stdout = io.Discard
	r.stderr = io.Discard

	err := r.Deploy(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDeploy))
	assert.Contains(t, err.Error(), "exit code 3")
	assert.Contains(t, logger.Output(), "rsync failed")
}
