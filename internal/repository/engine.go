package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"

	kperrors "katapass/internal/errors"
)

// Engine owns the engine child process and its three streams.
// All three are plain os.Pipe ends owned by the parent, so reaping the process
// never closes them underneath the broker, framer or relay.
type Engine struct {
	cmd    *exec.Cmd
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	log     *zap.SugaredLogger
	exited  chan struct{}
	exitErr error
}

func StartEngine(path string, args []string, log *zap.SugaredLogger) (*Engine, error) {
	cmd := exec.Command(path, args...)

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire engine stdin: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		closeAll(inR, inW)
		return nil, fmt.Errorf("failed to acquire engine stdout: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(inR, inW, outR, outW)
		return nil, fmt.Errorf("failed to acquire engine stderr: %w", err)
	}
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		closeAll(inR, inW, outR, outW, errR, errW)
		return nil, fmt.Errorf("failed to spawn engine process: %w", err)
	}
	// The child holds its own copies of these ends.
	closeAll(inR, outW, errW)

	e := &Engine{
		cmd:    cmd,
		Stdin:  inW,
		Stdout: outR,
		Stderr: errR,
		log:    log,
		exited: make(chan struct{}),
	}
	log.Infow("engine started", "path", path, "args", args, "pid", cmd.Process.Pid)

	go e.reap()

	return e, nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		f.Close()
	}
}

func (e *Engine) reap() {
	err := e.cmd.Wait()
	if err != nil {
		e.exitErr = fmt.Errorf("%w: %w", kperrors.ErrEngineExited, err)
	}
	e.log.Infow("engine exited", "error", err)
	close(e.exited)
}

// Exited is closed once the engine process has been reaped.
func (e *Engine) Exited() <-chan struct{} {
	return e.exited
}

// Wait blocks until the engine exits. A clean exit returns nil, anything else
// an error wrapping ErrEngineExited. If ctx ends first the engine is killed.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.exited:
		return e.exitErr
	default:
	}
	select {
	case <-e.exited:
	case <-ctx.Done():
		e.Kill()
		<-e.exited
	}
	return e.exitErr
}

func (e *Engine) Kill() {
	select {
	case <-e.exited:
		return
	default:
	}
	if err := e.cmd.Process.Kill(); err != nil {
		e.log.Warnw("failed to kill engine", "error", err)
	}
}
