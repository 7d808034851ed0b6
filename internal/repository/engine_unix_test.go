//go:build !windows

package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	kperrors "katapass/internal/errors"
)

func TestEngineStreamsAndCleanExit(t *testing.T) {
	eng, err := StartEngine("/bin/sh", []string{"-c", "read line; echo \"got $line\"; echo diag >&2"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	_, err = io.WriteString(eng.Stdin, "genmove B\n")
	require.NoError(t, err)

	out, err := io.ReadAll(eng.Stdout)
	require.NoError(t, err)
	diag, err := io.ReadAll(eng.Stderr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, eng.Wait(ctx))

	assert.Equal(t, "got genmove B\n", string(out))
	assert.Equal(t, "diag\n", string(diag))
}

func TestEngineAbnormalExit(t *testing.T) {
	eng, err := StartEngine("/bin/sh", []string{"-c", "exit 3"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = eng.Wait(ctx)
	require.ErrorIs(t, err, kperrors.ErrEngineExited)
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestEngineKilledOnCancel(t *testing.T) {
	eng, err := StartEngine("/bin/sh", []string{"-c", "sleep 60"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = eng.Wait(ctx)
	require.ErrorIs(t, err, kperrors.ErrEngineExited)

	select {
	case <-eng.Exited():
	default:
		t.Fatal("engine should be reaped after Wait returns")
	}
}

func TestStartEngineMissingExecutable(t *testing.T) {
	_, err := StartEngine("/nonexistent/katago", nil, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
}

func TestEngineStdinOutlivesProcess(t *testing.T) {
	eng, err := StartEngine("/bin/sh", []string{"-c", "read line; echo done"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer eng.Stdout.Close()
	defer eng.Stderr.Close()

	_, err = io.WriteString(eng.Stdin, "quit\n")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, eng.Wait(ctx))

	// Reaping leaves our end of stdin open.
	require.NoError(t, eng.Stdin.Close())
	out, err := io.ReadAll(eng.Stdout)
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(out))
}
