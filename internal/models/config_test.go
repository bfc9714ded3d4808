package models

import (
	"encoding/json"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitPropertiesJSONTags(t *testing.T) {
	props := GitProperties{
		GitCommitId:     "abc12345",
		GitBuildVersion: "1.0.0",
		GitDirty:        "false",
	}

	data, err := json.Marshal(props)
	require.NoError(t, err)
	jsonString := string(data)

	assert.Contains(t, jsonString, `"git.commit.id":"abc12345"`)
	assert.Contains(t, jsonString, `"git.build.version":"1.0.0"`)
	assert.NotContains(t, jsonString, "GitCommitId")
}

func TestNewGitProperties(t *testing.T) {
	t.Run("nil build info", func(t *testing.T) {
		props := NewGitProperties(nil)
		assert.Equal(t, "unknown", props.GitCommitId)
		assert.Equal(t, "unknown", props.GitBuildVersion)
	})

	t.Run("vcs settings", func(t *testing.T) {
		info := &debug.BuildInfo{
			GoVersion: "go1.24.2",
			Main:      debug.Module{Version: "v0.3.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2024-06-18T08:00:00Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}
		props := NewGitProperties(info)
		assert.Equal(t, "v0.3.0", props.GitBuildVersion)
		assert.Equal(t, "0123456789abcdef", props.GitCommitId)
		assert.Equal(t, "0123456", props.GitCommitIdAbbrev)
		assert.Equal(t, "2024-06-18T08:00:00Z", props.GitCommitTime)
		assert.Equal(t, "true", props.GitDirty)
		assert.Equal(t, "go1.24.2", props.GoVersion)
	})

	t.Run("short revision", func(t *testing.T) {
		info := &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}}}
		assert.Equal(t, "abc", NewGitProperties(info).GitCommitIdAbbrev)
	})
}
