package repository

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	kperrors "katapass/internal/errors"
	"katapass/internal/handoff"
)

// ResponseFramer splits the engine's output into responses. A response ends
// once three bytes have been read and the last one is a line break preceded
// by another line break one or two bytes earlier.
type ResponseFramer struct {
	src *bufio.Reader
	out *handoff.Queue[string]
	log *zap.SugaredLogger
}

func NewResponseFramer(src io.Reader, out *handoff.Queue[string], log *zap.SugaredLogger) *ResponseFramer {
	return &ResponseFramer{
		src: bufio.NewReader(src),
		out: out,
		log: log,
	}
}

// Run frames until the engine closes its output. End of stream returns nil.
func (f *ResponseFramer) Run() error {
	var (
		response strings.Builder
		window   [3]byte
		filled   int
	)
	for {
		b, err := f.src.ReadByte()
		if errors.Is(err, io.EOF) {
			if response.Len() > 0 {
				f.log.Warnw("engine output ended mid-response", "partial", response.String())
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read from engine stdout: %w", kperrors.ErrEngineIO, err)
		}

		response.WriteByte(b)
		window[0], window[1], window[2] = window[1], window[2], b
		if filled < len(window) {
			filled++
		}

		if filled == len(window) && (window[0] == '\n' || window[1] == '\n') && window[2] == '\n' {
			f.out.Send(response.String())
			response.Reset()
			filled = 0
		}
	}
}
