package task

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// promoteScript moves due members of the delayed set onto the ready list
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
	redis.call('ZREM', KEYS[1], member)
	redis.call('LPUSH', KEYS[2], member)
end
return #due
`)

// RedisBrokerConfig holds RedisBroker settings
type RedisBrokerConfig struct {
	// Queue prefixes every key (default "eta:tasks")
	Queue string
	// PollInterval bounds how long Dequeue blocks before promoting delayed tasks
	PollInterval time.Duration
	// PromoteBatch is the maximum number of delayed tasks promoted per poll
	PromoteBatch int
	// DeadLetterLimit caps the dead-letter list length
	DeadLetterLimit int64
}

// RedisBroker keeps ready tasks in a list, delayed tasks in a sorted set
// scored by ETA, and dead letters in a capped list.
type RedisBroker struct {
	client redis.UniversalClient
	cfg    RedisBrokerConfig
	closed atomic.Bool
}

// NewRedisBroker creates a RedisBroker. The client is owned by the caller.
func NewRedisBroker(client redis.UniversalClient, cfg RedisBrokerConfig) *RedisBroker {
	if cfg.Queue == "" {
		cfg.Queue = "eta:tasks"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PromoteBatch <= 0 {
		cfg.PromoteBatch = 100
	}
	if cfg.DeadLetterLimit <= 0 {
		cfg.DeadLetterLimit = 1000
	}
	return &RedisBroker{client: client, cfg: cfg}
}

var _ Broker = (*RedisBroker)(nil)

func (b *RedisBroker) readyKey() string   { return b.cfg.Queue + ":ready" }
func (b *RedisBroker) delayedKey() string { return b.cfg.Queue + ":delayed" }
func (b *RedisBroker) deadKey() string    { return b.cfg.Queue + ":dead" }

// Enqueue implements Broker
func (b *RedisBroker) Enqueue(ctx context.Context, t *Task) error {
	if b.closed.Load() {
		return ErrBrokerClosed
	}
	data, err := encode(t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := b.client.LPush(ctx, b.readyKey(), data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", t.Name, err)
	}
	return nil
}

// Schedule implements Broker
func (b *RedisBroker) Schedule(ctx context.Context, t *Task) error {
	if b.closed.Load() {
		return ErrBrokerClosed
	}
	data, err := encode(t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	member := redis.Z{Score: float64(t.ETA.UnixMilli()), Member: data}
	if err := b.client.ZAdd(ctx, b.delayedKey(), member).Err(); err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", t.Name, err)
	}
	return nil
}

// Dequeue implements Broker
func (b *RedisBroker) Dequeue(ctx context.Context) (*Task, error) {
	for {
		if b.closed.Load() {
			return nil, ErrBrokerClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.promote(ctx); err != nil {
			return nil, err
		}

		res, err := b.client.BRPop(ctx, b.cfg.PollInterval, b.readyKey()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to dequeue task: %w", err)
		}
		// res is [key, value]
		return decode([]byte(res[1]))
	}
}

func (b *RedisBroker) promote(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	err := promoteScript.Run(ctx, b.client,
		[]string{b.delayedKey(), b.readyKey()},
		now, b.cfg.PromoteBatch,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to promote delayed tasks: %w", err)
	}
	return nil
}

// DeadLetter implements Broker
func (b *RedisBroker) DeadLetter(ctx context.Context, t *Task, cause error) error {
	dl := DeadLetter{Task: t, FailedAt: time.Now()}
	if cause != nil {
		dl.Error = cause.Error()
	}
	data, err := jsonMarshal(dl)
	if err != nil {
		return err
	}
	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, b.deadKey(), data)
	pipe.LTrim(ctx, b.deadKey(), 0, b.cfg.DeadLetterLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to dead-letter task %s: %w", t.Name, err)
	}
	return nil
}

// DeadLetters returns up to limit of the most recent dead letters
func (b *RedisBroker) DeadLetters(ctx context.Context, limit int64) ([]DeadLetter, error) {
	raw, err := b.client.LRange(ctx, b.deadKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}
	letters := make([]DeadLetter, 0, len(raw))
	for _, r := range raw {
		var dl DeadLetter
		if err := jsonUnmarshal([]byte(r), &dl); err != nil {
			return nil, err
		}
		letters = append(letters, dl)
	}
	return letters, nil
}

// Stats returns the ready, delayed and dead-letter counts
func (b *RedisBroker) Stats(ctx context.Context) (ready, delayed, dead int64, err error) {
	pipe := b.client.Pipeline()
	r := pipe.LLen(ctx, b.readyKey())
	d := pipe.ZCard(ctx, b.delayedKey())
	x := pipe.LLen(ctx, b.deadKey())
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return r.Val(), d.Val(), x.Val(), nil
}

// Close stops further use of the broker. The client stays open.
func (b *RedisBroker) Close() error {
	b.closed.Store(true)
	return nil
}
