package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"katapass/internal/bootstrap"
	"katapass/internal/domain"
	"katapass/internal/handoff"
)

const publishTimeout = 2 * time.Second

// AdapterRedis publishes decisions on a Redis pub/sub channel. Publish only
// queues; Run does the network work so the broker never waits on Redis.
type AdapterRedis struct {
	client *redis.Client
	cfg    *bootstrap.Config
	log    *zap.SugaredLogger
	queue  *handoff.Queue[domain.Decision]
}

func NewAdapterRedis(cfg *bootstrap.Config, log *zap.SugaredLogger) *AdapterRedis {
	return &AdapterRedis{
		cfg:   cfg,
		log:   log,
		queue: handoff.New[domain.Decision](),
	}
}

// redisOptions accepts either a redis:// or rediss:// URL, which may carry
// credentials and a database number, or a bare host:port address.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

func (a *AdapterRedis) Init(ctx context.Context) error {
	opts, err := redisOptions(a.cfg.RedisUrl)
	if err != nil {
		return err
	}
	a.client = redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.client.Ping(ctxPing).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	a.log.Infow("connected to Redis", "addr", opts.Addr, "db", opts.DB, "channel", a.cfg.RedisChannel)
	return nil
}

func (a *AdapterRedis) Publish(d domain.Decision) {
	a.queue.Send(d)
}

// Run publishes queued decisions until ctx ends. Failures are logged and the
// decision dropped.
func (a *AdapterRedis) Run(ctx context.Context) {
	for {
		d, err := a.queue.Receive(ctx)
		if err != nil {
			return
		}
		payload, err := json.Marshal(d)
		if err != nil {
			a.log.Errorw("failed to marshal decision", "id", d.ID, "error", err)
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err = a.client.Publish(pubCtx, a.cfg.RedisChannel, payload).Err()
		cancel()
		if err != nil {
			a.log.Warnw("failed to publish decision", "id", d.ID, "error", err)
		}
	}
}

func (a *AdapterRedis) Close(ctx context.Context) error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}
