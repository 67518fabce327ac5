package version

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestGetLinkerFlags(t *testing.T) {
	oldV, oldC, oldT := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldT })

	Version, GitCommit, BuildTime = "v1.2.3", "0123456789abcdef", "2024-05-01T10:00:00Z"
	info := Get()

	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), info.BuildTime)
}

func TestShort(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "v1.0.0", GitCommit: "abcdef0123"}, "v1.0.0 (abcdef0)"},
		{Info{Version: "dev", GitCommit: "abcdef0123"}, "dev-abcdef0"},
		{Info{Version: "dev", GitCommit: "unknown"}, "dev"},
		{Info{Version: "v2", GitCommit: "abc"}, "v2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.info.Short())
	}
}

func TestDetailed(t *testing.T) {
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "abcdef0123",
		Dirty:     true,
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
	}
	out := info.Detailed()

	assert.True(t, strings.HasPrefix(out, "Version: v1.0.0\n"))
	assert.Contains(t, out, "Commit: abcdef0123 (dirty)")
	assert.NotContains(t, out, "Built:")
	assert.Contains(t, out, "Platform: linux/amd64")
}

func TestIsRelease(t *testing.T) {
	assert.True(t, Info{Version: "v1.0.0"}.IsRelease())
	assert.False(t, Info{Version: "dev"}.IsRelease())
	assert.False(t, Info{Version: "dev-abcdef0"}.IsRelease())
}
