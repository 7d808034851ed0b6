package katapass

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"katapass/internal/bootstrap"
	"katapass/internal/handoff"
	"katapass/internal/repository"
)

// EngineProcess is the running engine as seen by the session.
type EngineProcess interface {
	// Wait returns nil on a clean exit and kills the process if ctx ends first.
	Wait(ctx context.Context) error
}

type Streams struct {
	ControllerIn  io.Reader
	ControllerOut io.Writer
	Diagnostic    io.Writer
	EngineIn      io.WriteCloser
	EngineOut     io.Reader
	EngineErr     io.Reader
}

var errEngineFinished = errors.New("engine finished")

type Session struct {
	cfg        *bootstrap.Config
	log        *zap.SugaredLogger
	engine     EngineProcess
	streams    Streams
	stats      *Stats
	publishers []DecisionPublisher
}

func NewSession(
	cfg *bootstrap.Config,
	log *zap.SugaredLogger,
	engine EngineProcess,
	streams Streams,
	stats *Stats,
	publishers ...DecisionPublisher,
) *Session {
	return &Session{
		cfg:        cfg,
		log:        log,
		engine:     engine,
		streams:    streams,
		stats:      stats,
		publishers: publishers,
	}
}

// Run drives the broker, framer and relay until the engine exits. The first
// failure of any of them ends the session and kills the engine.
func (s *Session) Run(ctx context.Context) error {
	responses := handoff.New[string]()
	diag, ok := s.streams.Diagnostic.(*repository.LockedWriter)
	if !ok {
		diag = repository.NewLockedWriter(s.streams.Diagnostic)
	}

	framer := repository.NewResponseFramer(s.streams.EngineOut, responses, s.log)
	relay := repository.NewDiagnosticRelay(s.streams.EngineErr, diag)
	broker := NewBroker(s.cfg, s.log, BrokerStreams{
		Controller: s.streams.ControllerIn,
		Output:     s.streams.ControllerOut,
		Diag:       diag,
		EngineIn:   s.streams.EngineIn,
	}, responses, s.stats, s.publishers...)

	framerDone := make(chan struct{})
	var engineClean atomic.Bool
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(framerDone)
		return framer.Run()
	})
	g.Go(relay.Run)
	g.Go(func() error {
		return broker.Run(gctx)
	})
	g.Go(func() error {
		if err := s.engine.Wait(gctx); err != nil {
			return err
		}
		engineClean.Store(true)
		// Let queued responses reach the broker before stopping it.
		<-framerDone
		return errEngineFinished
	})

	// A broker write racing a clean engine exit fails with a broken pipe; the
	// exit status decides the outcome.
	err := g.Wait()
	switch {
	case errors.Is(err, errEngineFinished), err != nil && engineClean.Load():
		s.log.Infow("engine finished, session closed", "cause", err)
		return nil
	case ctx.Err() != nil:
		s.log.Infow("session cancelled", "cause", err)
		return nil
	default:
		return err
	}
}
