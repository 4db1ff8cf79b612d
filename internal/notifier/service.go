package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	rtsup "gardenlights/internal/runtime/supervisor"
	logx "gardenlights/pkg/logx"
)

var ErrQueueFull = errors.New("notifier queue full")

const (
	defaultQueueSize = 32
	retryMax         = 3
	retryBase        = 500 * time.Millisecond
	retryMaxDelay    = 10 * time.Second
)

// Service logs every event and forwards it to the remote sinks.
type Service struct {
	log   logx.Logger
	sinks []Sink
	queue chan Event
}

func New(log logx.Logger, sinks ...Sink) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:   log,
		sinks: sinks,
		queue: make(chan Event, defaultQueueSize),
	}
}

// Start runs the delivery worker under sup. Without remote sinks it is a no-op.
func (s *Service) Start(sup *rtsup.Supervisor) {
	if len(s.sinks) == 0 {
		return
	}
	sup.Go("notifier.worker", func(ctx context.Context) error {
		s.worker(ctx)
		return nil
	})
}

// Notify logs ev and queues it for the remote sinks. It never blocks.
func (s *Service) Notify(ctx context.Context, ev Event) error {
	_ = ctx
	s.log.Info(ev.Text())
	if len(s.sinks) == 0 {
		return nil
	}
	select {
	case s.queue <- ev:
		return nil
	default:
		s.log.Warn("status notification dropped", logx.String("id", ev.ID), logx.Int("queue_cap", cap(s.queue)))
		return ErrQueueFull
	}
}

func (s *Service) worker(ctx context.Context) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.queue:
			for _, sink := range s.sinks {
				s.deliver(ctx, rng, sink, ev)
			}
		}
	}
}

func (s *Service) deliver(ctx context.Context, rng *rand.Rand, sink Sink, ev Event) {
	delay := retryBase
	for attempt := 0; ; attempt++ {
		err := sink.Send(ctx, ev)
		if err == nil {
			return
		}
		if attempt >= retryMax || ctx.Err() != nil {
			s.log.Warn("status notification failed",
				logx.String("sink", sink.Name()),
				logx.String("id", ev.ID),
				logx.Int("attempts", attempt+1),
				logx.Err(err),
			)
			return
		}
		wait := delay + time.Duration(rng.Int63n(int64(delay/2)+1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		delay = min(delay*2, retryMaxDelay)
	}
}

// Close releases sinks that hold connections. Call after the worker stopped.
func (s *Service) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
