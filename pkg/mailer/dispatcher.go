package mailer

import (
	"context"
	"time"

	"library_service/pkg/circuitbreaker"
	"library_service/pkg/queue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DispatcherOptions struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	DrainInterval time.Duration
	MaxFailures   int
	OpenTimeout   time.Duration
}

func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		MaxAttempts:   5,
		BaseDelay:     2 * time.Second,
		DrainInterval: time.Second,
		MaxFailures:   5,
		OpenTimeout:   30 * time.Second,
	}
}

// Dispatcher sends through a circuit breaker. A failed send is queued and
// retried with exponential backoff until MaxAttempts is reached.
type Dispatcher struct {
	sender  Sender
	breaker *circuitbreaker.CircuitBreaker
	retries *queue.Queue[Message]
	opts    DispatcherOptions
	logger  *zap.Logger
	now     func() time.Time
}

func NewDispatcher(sender Sender, logger *zap.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &Dispatcher{
		sender:  sender,
		breaker: circuitbreaker.New(opts.MaxFailures, opts.OpenTimeout),
		retries: queue.New[Message](),
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Send attempts delivery once. On failure the message is queued for retry
// and nil is returned, so callers are not blocked by a slow relay.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	err := d.breaker.Execute(func() error {
		return d.sender.Send(ctx, msg)
	})
	if err == nil {
		return nil
	}

	item := &queue.Item[Message]{
		ID:       uuid.NewString(),
		Value:    msg,
		Attempts: 1,
	}
	d.schedule(item)
	d.logger.Warn("mail delivery failed, queued for retry",
		zap.String("to", msg.To),
		zap.String("id", item.ID),
		zap.Error(err),
	)
	return nil
}

func (d *Dispatcher) schedule(item *queue.Item[Message]) {
	delay := d.opts.BaseDelay << (item.Attempts - 1)
	item.RetryAt = d.now().Add(delay)
	d.retries.Enqueue(item)
}

// Drain retries every due message once.
func (d *Dispatcher) Drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		item := d.retries.Dequeue()
		if item == nil {
			return
		}

		err := d.breaker.Execute(func() error {
			return d.sender.Send(ctx, item.Value)
		})
		if err == nil {
			d.logger.Info("queued mail delivered",
				zap.String("to", item.Value.To),
				zap.String("id", item.ID),
				zap.Int("attempts", item.Attempts+1),
			)
			continue
		}

		item.Attempts++
		if item.Attempts >= d.opts.MaxAttempts {
			d.logger.Error("mail dropped after retries",
				zap.String("to", item.Value.To),
				zap.String("id", item.ID),
				zap.Int("attempts", item.Attempts),
				zap.Error(err),
			)
			continue
		}
		d.schedule(item)
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.opts.DrainInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := d.retries.Size(); n > 0 {
				d.logger.Warn("mail dispatcher stopped with undelivered mail", zap.Int("pending", n))
			}
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

func (d *Dispatcher) Pending() int {
	return d.retries.Size()
}

func (d *Dispatcher) BreakerState() circuitbreaker.State {
	return d.breaker.State()
}
