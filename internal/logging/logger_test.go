package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutputPathsDefaultsToStderr(t *testing.T) {
	assert.Equal(t, []string{"stderr"}, ResolveOutputPaths(""))
}

func TestResolveOutputPathsUsesOpsLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.log")
	assert.Equal(t, []string{path}, ResolveOutputPaths(path))
}

func TestNewBuildsAtConfiguredLevel(t *testing.T) {
	logger, err := New(Config{Level: "debug", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(-1)) // debug level
}

func TestNewForStageBindsStageField(t *testing.T) {
	logger, err := NewForStage(Config{Level: "info", OutputPaths: []string{"stdout"}}, "extend")
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "not-a-level", OutputPaths: []string{"stdout"}})
	assert.Error(t, err)
}
