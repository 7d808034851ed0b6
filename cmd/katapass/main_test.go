package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"katapass/internal/bootstrap"
	kperrors "katapass/internal/errors"
	"katapass/internal/repository"
)

func TestRootCommandRequiresConfigArgument(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{})
	require.Error(t, cmd.Execute())
}

func TestRootCommandMissingConfigFile(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.cfg")})
	err := cmd.Execute()
	require.ErrorIs(t, err, kperrors.ErrConfig)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&bootstrap.Config{LogLevel: "debug", LogOutput: "stderr"}, &buf)
	require.NoError(t, err)
	assert.True(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(&bootstrap.Config{LogLevel: "chatty", LogOutput: "stderr"}, &buf)
	require.Error(t, err)
}

func TestNewLoggerWritesThroughDiagnosticWriter(t *testing.T) {
	var buf bytes.Buffer
	diag := repository.NewLockedWriter(&buf)
	logger, err := NewLogger(&bootstrap.Config{LogLevel: "info", LogOutput: "stderr"}, diag)
	require.NoError(t, err)

	_, err = diag.Write([]byte("KataGo starting\n"))
	require.NoError(t, err)
	logger.Infow("engine started", "pid", 42)
	logger.Debug("dropped below level")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "KataGo starting", lines[0])

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &record))
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "engine started", record["msg"])
	assert.EqualValues(t, 42, record["pid"])
}

func TestNewLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "katapass.log")
	var buf bytes.Buffer
	logger, err := NewLogger(&bootstrap.Config{LogLevel: "info", LogOutput: path}, &buf)
	require.NoError(t, err)

	logger.Info("engine started")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"engine started"`)
	assert.Empty(t, buf.String())
}
