package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	require.Equal(t, logrus.DebugLevel, GetLevel("DEBUG"))
	require.Equal(t, logrus.WarnLevel, GetLevel("warning"))
	require.Equal(t, logrus.InfoLevel, GetLevel(""))
	require.Equal(t, logrus.InfoLevel, GetLevel("verbose"))
}

func TestSetupWritesToRotatingFile(t *testing.T) {
	dir := t.TempDir()
	logger := logrus.New()

	setup(logger, SetupParams{
		LogFileName:   filepath.Join(dir, "syncworker"),
		LogLevel:      "info",
		LogFormatJSON: true,
	})
	logger.WithField("component", "test").Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, "syncworker.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
	require.Contains(t, string(data), `"component":"test"`)
}

func TestSetupStdout(t *testing.T) {
	logger := logrus.New()
	setup(logger, SetupParams{LogLevel: "error"})

	require.Equal(t, logrus.ErrorLevel, logger.GetLevel())
	require.Equal(t, os.Stdout, logger.Out)
}
