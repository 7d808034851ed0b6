package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"katapass/internal/adapters"
	"katapass/internal/bootstrap"
	"katapass/internal/delivery/monitor"
	"katapass/internal/repository"
	"katapass/internal/usecase/katapass"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "katapass <config>",
		Short:         "GTP proxy that lets the engine pass when passing looks at least as good as playing",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.Setup(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			// Log records and relayed engine diagnostics share one stderr writer.
			diag := repository.NewLockedWriter(os.Stderr)
			logger, err := NewLogger(cfg, diag)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			defer logger.Sync()

			if err := run(cmd.Context(), cfg, logger, diag); err != nil {
				logger.Errorw("KataPass stopped", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL from the config file")
	return cmd
}

// NewLogger builds the production JSON logger. LOG_OUTPUT "stderr" writes
// through the given writer; any other value is a path opened by zap.
func NewLogger(cfg *bootstrap.Config, stderr io.Writer) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	if cfg.LogOutput == "stderr" {
		sink := zapcore.AddSync(stderr)
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, level)
		return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel), zap.ErrorOutput(sink)).Sugar(), nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{cfg.LogOutput}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

func run(parent context.Context, cfg *bootstrap.Config, log *zap.SugaredLogger, diag *repository.LockedWriter) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats := katapass.NewStats()
	var publishers []katapass.DecisionPublisher

	if cfg.MonitorAddr != "" {
		mon := monitor.NewMonitorHandler(log, stats)
		publishers = append(publishers, mon)
		go func() {
			if err := mon.Serve(ctx, cfg.MonitorAddr); err != nil {
				log.Errorw("monitor stopped", "error", err)
			}
		}()
	}

	if cfg.RedisUrl != "" {
		redisAdapter := adapters.NewAdapterRedis(cfg, log)
		if err := redisAdapter.Init(ctx); err != nil {
			return err
		}
		defer redisAdapter.Close(ctx)
		publishers = append(publishers, redisAdapter)
		go redisAdapter.Run(ctx)
	}

	engine, err := repository.StartEngine(cfg.Engine, cfg.EngineArgs(), log)
	if err != nil {
		return err
	}

	session := katapass.NewSession(cfg, log, engine, katapass.Streams{
		ControllerIn:  os.Stdin,
		ControllerOut: os.Stdout,
		Diagnostic:    diag,
		EngineIn:      engine.Stdin,
		EngineOut:     engine.Stdout,
		EngineErr:     engine.Stderr,
	}, stats, publishers...)

	return session.Run(ctx)
}
