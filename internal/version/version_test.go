package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	b := fromBuildInfo(info, true)
	assert.Equal(t, "v1.4.0", b.Version)
	assert.Equal(t, "0123456789abcdef", b.GitCommit)
	assert.True(t, b.Dirty)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), b.BuildTime)
	assert.Equal(t, "v1.4.0 (0123456)", b.Short())
	assert.Contains(t, b.Detailed(), "Commit: 0123456789abcdef (dirty)")
}

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"no commit", BuildInfo{Version: "dev", GitCommit: "unknown"}, "dev"},
		{"dev build", BuildInfo{Version: "dev", GitCommit: "abcdef0123"}, "dev-abcdef0"},
		{"release", BuildInfo{Version: "v2.0.0", GitCommit: "abcdef0123"}, "v2.0.0 (abcdef0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.Short())
		})
	}
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
	assert.Equal(t, 2025, parseTime("2025-06-01 12:00:00").Year())
}
