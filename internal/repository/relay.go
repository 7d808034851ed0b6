package repository

import (
	"errors"
	"fmt"
	"io"
	"sync"

	kperrors "katapass/internal/errors"
)

// LockedWriter serialises writes from several goroutines onto one stream.
type LockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLockedWriter(w io.Writer) *LockedWriter {
	return &LockedWriter{w: w}
}

func (l *LockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// DiagnosticRelay copies the engine's stderr to ours as bytes arrive.
type DiagnosticRelay struct {
	src io.Reader
	dst io.Writer
}

func NewDiagnosticRelay(src io.Reader, dst io.Writer) *DiagnosticRelay {
	return &DiagnosticRelay{src: src, dst: dst}
}

func (r *DiagnosticRelay) Run() error {
	buf := make([]byte, 256)
	for {
		n, err := r.src.Read(buf)
		if n > 0 {
			if _, werr := r.dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: failed to write diagnostic output: %w", kperrors.ErrEngineIO, werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read from engine stderr: %w", kperrors.ErrEngineIO, err)
		}
	}
}
