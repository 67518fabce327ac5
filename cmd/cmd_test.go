package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/olynch/presentations/internal/config"
	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
	"github.com/olynch/presentations/internal/server"
	"github.com/olynch/presentations/internal/version"
	"github.com/olynch/presentations/internal/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns what it printed on
// stdout and stderr. Flag variables are reset first because cobra keeps
// them between executions.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()

	cfgFile = config.DefaultPath
	logLevel = "info"
	logFormat = "text"
	versionFormat = "text"
	versionShort = false
	versionDetailed = false
	configFormat = "toml"
	initForce = false
	servePort = server.DefaultPort
	serveOpen = false
	healthPort = server.DefaultPort
	healthHost = "127.0.0.1"
	healthTimeout = 3 * time.Second
	healthVerbose = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestInitThenBuild(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "create config.toml")
	assert.NotContains(t, out, "cd ")
	for _, f := range []string{"config.toml", "slides.md", "template.html", "static/deck.css", "static/deck.js"} {
		assert.FileExists(t, f)
	}

	out, _, err = run(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Built 3 slides into out")

	for _, f := range []string{"out/1.html", "out/2.html", "out/3.html", "out/index.html", "out/static/deck.css"} {
		assert.FileExists(t, f)
	}
	assert.NoFileExists(t, "out/refresh.js")

	first, err := os.ReadFile("out/1.html")
	require.NoError(t, err)
	assert.Contains(t, string(first), `<main class="slide title">`)
	assert.Contains(t, string(first), "<footer>1 / 3</footer>")

	last, err := os.ReadFile("out/3.html")
	require.NoError(t, err)
	assert.Contains(t, string(last), `<main class="slide center">`)
}

func TestInitIntoDirectory(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := run(t, "init", "talk")
	require.NoError(t, err)
	assert.Contains(t, out, "cd talk")
	assert.FileExists(t, filepath.Join("talk", "config.toml"))
	assert.DirExists(t, filepath.Join("talk", "static"))
}

func TestInitKeepsExistingFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("slides.md", []byte("# Mine\n"), 0o644))

	out, _, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "skip   slides.md")

	data, err := os.ReadFile("slides.md")
	require.NoError(t, err)
	assert.Equal(t, "# Mine\n", string(data))

	_, _, err = run(t, "init", "--force")
	require.NoError(t, err)
	data, err = os.ReadFile("slides.md")
	require.NoError(t, err)
	assert.Contains(t, string(data), "# A Deck")
}

func TestBuildWithoutConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := run(t, "build")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestBuildFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := run(t, "init")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile("template.html", []byte("{% if %}"), 0o644))

	_, stderr, err := run(t, "build")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeBuild))
	assert.Contains(t, stderr, "build failed")
}

func TestServeFailsOnInitialBuild(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := run(t, "init")
	require.NoError(t, err)
	require.NoError(t, os.Remove("slides.md"))

	_, _, err = run(t, "serve", "--port", "-1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestServeWithoutWatcher(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := run(t, "init")
	require.NoError(t, err)

	orig := newWatcher
	t.Cleanup(func() { newWatcher = orig })
	newWatcher = func(time.Duration, logging.Logger) (*watcher.FileWatcher, error) {
		return nil, errors.NewWatchError(errors.ErrCodeWatchSetup, "creating file watcher", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	stdout, stderr, err := runContext(t, ctx, "serve", "--port", "-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Serving slides.md at http://127.0.0.1:")
	assert.Contains(t, stderr, "file watching disabled")
	assert.FileExists(t, filepath.Join("out", "1.html"))
}

func TestConfigShow(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := `src = "slides.md"
out = "out"
template = "template.html"
static = "static"
deploy = "s3://decks/talk"

[s3]
region = "eu-central-1"
access_key_id = "AKIA"
secret_access_key = "hunter2"
`
	require.NoError(t, os.WriteFile("config.toml", []byte(cfg), 0o644))

	out, _, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "s3://decks/talk")
	assert.Contains(t, out, "[s3]")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")

	out, _, err = run(t, "config", "show", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "src: slides.md")
	assert.Contains(t, out, "region: eu-central-1")
	assert.NotContains(t, out, "hunter2")

	t.Setenv("DECK_OUT", "public")
	out, _, err = run(t, "config", "show", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "out: public")

	_, _, err = run(t, "config", "show", "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestConfigValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("deck.toml", []byte(`src = "a.md"`), 0o644))

	_, _, err := run(t, "--config", "deck.toml", "config", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out, template, static")

	_, _, err = run(t, "init")
	require.NoError(t, err)
	out, _, err := run(t, "config", "validate")
	require.NoError(t, err)
	assert.Equal(t, "config.toml is valid\n", out)
}

func TestDeployWithoutDestination(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := run(t, "init")
	require.NoError(t, err)

	_, _, err = run(t, "deploy")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.NoDirExists(t, "out", "nothing is built without a destination")
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Get().Short()+"\n", out)

	out, _, err = run(t, "version", "--format", "json")
	require.NoError(t, err)
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Get().Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)

	out, _, err = run(t, "version", "--detailed")
	require.NoError(t, err)
	assert.Contains(t, out, "Build type:")

	_, _, err = run(t, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestGlobalFlagValidation(t *testing.T) {
	_, _, err := run(t, "--log-format", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported log-format")

	_, _, err = run(t, "--log-level", "loud", "version")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","version":"dev","uptime":"3s","subscribers":2}`))
	}))
	defer ts.Close()
	host, port := splitHostPort(t, ts.URL)

	out, _, err := run(t, "health", "--host", host, "--port", port)
	require.NoError(t, err)
	assert.Equal(t, "healthy (version dev, up 3s, 2 clients)\n", out)
}

func TestHealthDegraded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer ts.Close()
	host, port := splitHostPort(t, ts.URL)

	out, _, err := run(t, "health", "--host", host, "--port", port, "--verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "degraded")
	assert.Contains(t, out, `{"status":"degraded"}`)
}

func TestHealthUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	_, _, err = run(t, "health", "--port", port, "--timeout", "500ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func splitHostPort(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Hostname(), u.Port()
}
