package wslog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_StderrOnly(t *testing.T) {
	logger, err := New(LevelDebug, RotationConfig{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
}

func TestNew_WithRotation(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(LevelInfo, RotationConfig{Filename: filepath.Join(dir, "server.log"), MaxSizeMB: 1})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("rotated")
}

func TestNew_UnknownLevel(t *testing.T) {
	_, err := New(Level("nonsense"), RotationConfig{})
	require.Error(t, err)
}

func TestLevel_DefaultsToInfoOnEmpty(t *testing.T) {
	zl, err := Level("").zapLevel()
	require.NoError(t, err)
	require.Equal(t, "info", zl.String())
}

func TestLevel_CriticalMapsToDPanic(t *testing.T) {
	zl, err := LevelCritical.zapLevel()
	require.NoError(t, err)
	require.Equal(t, "dpanic", zl.String())
}
