package katapass

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"katapass/internal/bootstrap"
	"katapass/internal/domain"
	kperrors "katapass/internal/errors"
	"katapass/internal/handoff"
)

// Broker is the only writer of the engine's input and the only reader of the
// response queue, so the n-th response received always answers the n-th
// command written, including the extra round trips of an evaluation.
type Broker struct {
	intercept string
	threshold float64
	syncPass  bool

	controller io.Reader
	output     io.Writer
	diag       io.Writer
	engineIn   io.WriteCloser
	responses  *handoff.Queue[string]

	stats      *Stats
	publishers []DecisionPublisher
	log        *zap.SugaredLogger
}

type BrokerStreams struct {
	Controller io.Reader
	Output     io.Writer
	Diag       io.Writer
	EngineIn   io.WriteCloser
}

func NewBroker(
	cfg *bootstrap.Config,
	log *zap.SugaredLogger,
	streams BrokerStreams,
	responses *handoff.Queue[string],
	stats *Stats,
	publishers ...DecisionPublisher,
) *Broker {
	return &Broker{
		intercept:  cfg.Intercept,
		threshold:  cfg.Threshold,
		syncPass:   cfg.SyncPass,
		controller: streams.Controller,
		output:     streams.Output,
		diag:       streams.Diag,
		engineIn:   streams.EngineIn,
		responses:  responses,
		stats:      stats,
		publishers: publishers,
		log:        log,
	}
}

type controllerLine struct {
	text string
	err  error
}

// Run serves controller lines until the controller closes its input, which
// closes the engine's input and returns nil, or until ctx ends.
func (b *Broker) Run(ctx context.Context) error {
	lines := make(chan controllerLine, 1)
	go b.readLines(ctx, lines)

	for {
		var line controllerLine
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line = <-lines:
		}

		if errors.Is(line.err, io.EOF) {
			b.log.Info("controller closed input, closing engine input")
			if err := b.engineIn.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				return fmt.Errorf("%w: failed to close engine stdin: %w", kperrors.ErrEngineIO, err)
			}
			return nil
		}
		if line.err != nil {
			return fmt.Errorf("%w: failed to read from KataPass stdin: %w", kperrors.ErrControllerIO, line.err)
		}

		if err := b.handle(ctx, line.text); err != nil {
			return err
		}
	}
}

func (b *Broker) readLines(ctx context.Context, lines chan<- controllerLine) {
	reader := bufio.NewReader(b.controller)
	for {
		text, err := reader.ReadString('\n')
		if err != nil && text != "" && errors.Is(err, io.EOF) {
			// Last line had no terminator; forward it as a complete command.
			if !b.deliver(ctx, lines, controllerLine{text: text + "\n"}) {
				return
			}
			text = ""
		}
		if !b.deliver(ctx, lines, controllerLine{text: text, err: err}) || err != nil {
			return
		}
	}
}

func (b *Broker) deliver(ctx context.Context, lines chan<- controllerLine, line controllerLine) bool {
	select {
	case lines <- line:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *Broker) handle(ctx context.Context, line string) error {
	if strings.HasPrefix(line, b.intercept) {
		passed, err := b.intercepted(ctx, line)
		if err != nil || passed {
			return err
		}
	}

	response, err := b.exchange(ctx, line)
	if err != nil {
		return err
	}
	b.stats.forwarded.Add(1)

	if err := b.writeOutput(response); err != nil {
		return err
	}
	b.stats.relayed.Add(1)
	return nil
}

// intercepted evaluates the line and reports whether a pass was answered in
// its place.
func (b *Broker) intercepted(ctx context.Context, line string) (bool, error) {
	if err := b.writeDiag(domain.MsgConsidering); err != nil {
		return false, err
	}
	ev, err := b.evaluate(ctx, line)
	if err != nil {
		return false, err
	}

	decision := domain.Decision{
		ID:          uuid.New().String(),
		At:          time.Now().UTC(),
		Command:     strings.TrimRight(line, "\r\n"),
		Color:       ev.ColorToken,
		Winrate:     ev.Winrate,
		Passed:      ev.Winrate >= b.threshold,
		PassCommand: ev.PassCommand,
	}
	b.log.Infow("intercept evaluated",
		"id", decision.ID,
		"command", decision.Command,
		"winrate", decision.Winrate,
		"passed", decision.Passed,
	)

	if !decision.Passed {
		if err := b.writeDiag(domain.MsgPlay); err != nil {
			return false, err
		}
		b.publish(decision)
		return false, nil
	}

	if err := b.writeDiag(domain.MsgPass); err != nil {
		return false, err
	}
	if err := b.writeOutput(domain.PassOutput); err != nil {
		return false, err
	}
	b.publish(decision)

	if b.syncPass {
		if _, err := b.exchange(ctx, ev.PassCommand); err != nil {
			return false, err
		}
		b.stats.forwarded.Add(1)
	} else {
		b.log.Debugw("pass command not sent to engine", "id", decision.ID, "command", strings.TrimSpace(ev.PassCommand))
	}
	return true, nil
}

func (b *Broker) publish(d domain.Decision) {
	b.stats.Publish(d)
	for _, p := range b.publishers {
		p.Publish(d)
	}
}

// exchange writes one command to the engine and waits for its response.
func (b *Broker) exchange(ctx context.Context, command string) (string, error) {
	if _, err := io.WriteString(b.engineIn, command); err != nil {
		return "", fmt.Errorf("%w: failed to write to engine stdin: %w", kperrors.ErrEngineIO, err)
	}
	response, err := b.responses.Receive(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to receive engine response: %w", err)
	}
	return response, nil
}

func (b *Broker) writeOutput(s string) error {
	if _, err := io.WriteString(b.output, s); err != nil {
		return fmt.Errorf("%w: failed to write to KataPass stdout: %w", kperrors.ErrControllerIO, err)
	}
	return nil
}

func (b *Broker) writeDiag(s string) error {
	if _, err := io.WriteString(b.diag, s); err != nil {
		return fmt.Errorf("%w: failed to write to KataPass stderr: %w", kperrors.ErrControllerIO, err)
	}
	return nil
}
