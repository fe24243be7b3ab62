/*
relay.go - Outbox relay

PURPOSE:
  Drains the outbox table: claim due messages, dispatch each one, then ack on
  success, nack with exponential backoff on failure, or mark dead once the
  attempt budget is spent. Delivery is at-least-once; dispatchers must be
  idempotent.

LIFECYCLE:
  relay := outbox.NewRelay(source, dispatcher, opts)
  relay.Start()      // background goroutine, polls every PollInterval
  ...
  relay.Stop()       // waits for the in-flight batch

  Run(ctx) is the blocking equivalent; ProcessOnce drains one batch and is
  what tests call.

SEE ALSO:
  - calendar/dispatcher.go: the dispatcher for calendar sync
  - store/sqlstore/outbox.go: the Source implementation
*/
package outbox

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type RelayOptions struct {
	PollInterval    time.Duration
	BatchSize       int
	LockTTL         time.Duration
	MaxAttempts     int
	MaxBackoff      time.Duration
	JitterMax       time.Duration
	LastErrorMaxLen int
	DispatchTimeout time.Duration

	// ObserveDepthEvery controls how often the pending gauge is refreshed.
	ObserveDepthEvery time.Duration

	Logger *logrus.Entry
	Rand   *rand.Rand
	Now    func() time.Time
}

func (o *RelayOptions) setDefaults() {
	if o.PollInterval == 0 {
		o.PollInterval = 1 * time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
	if o.LockTTL == 0 {
		o.LockTTL = 60 * time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 25
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 60 * time.Second
	}
	if o.JitterMax == 0 {
		o.JitterMax = 200 * time.Millisecond
	}
	if o.LastErrorMaxLen == 0 {
		o.LastErrorMaxLen = 2048
	}
	if o.DispatchTimeout == 0 {
		o.DispatchTimeout = 30 * time.Second
	}
	if o.ObserveDepthEvery == 0 {
		o.ObserveDepthEvery = 10 * time.Second
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
}

// Relay moves messages from a Source to a Dispatcher.
type Relay struct {
	source     Source
	dispatcher Dispatcher
	opts       RelayOptions
	m          *metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRelay(source Source, dispatcher Dispatcher, opts RelayOptions) (*Relay, error) {
	if source == nil {
		return nil, invalidConfig("source is required")
	}
	if dispatcher == nil {
		return nil, invalidConfig("dispatcher is required")
	}
	opts.setDefaults()
	return &Relay{source: source, dispatcher: dispatcher, opts: opts, m: getMetrics()}, nil
}

// Start runs the relay in the background until Stop is called.
func (r *Relay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.opts.Logger.WithError(err).Error("outbox: relay stopped")
		}
	}()

	r.opts.Logger.WithField("poll_interval", r.opts.PollInterval).Info("outbox: relay started")
}

// Stop cancels the background loop and waits for it to exit.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.cancel = nil
	r.opts.Logger.Info("outbox: relay stopped")
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := r.opts.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if r.opts.Now().After(nextDepthAt) {
			if err := r.observeDepth(ctx); err != nil {
				r.opts.Logger.WithError(err).Debug("outbox: observe queue depth failed")
			}
			nextDepthAt = r.opts.Now().Add(r.opts.ObserveDepthEvery)
		}

		if _, err := r.ProcessOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("outbox: process tick failed")
		}
	}
}

// ProcessOnce claims and handles one batch, returning how many messages were
// claimed.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	now := r.opts.Now()
	claimed, err := r.source.Claim(ctx, now, now.Add(-r.opts.LockTTL), r.opts.MaxAttempts, r.opts.BatchSize)
	if err != nil {
		return 0, err
	}

	for _, msg := range claimed {
		r.handle(ctx, msg)
	}
	return len(claimed), nil
}

func (r *Relay) handle(ctx context.Context, msg Message) {
	log := r.opts.Logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"topic":      msg.Topic,
		"attempts":   msg.Attempts,
	})

	dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
	start := time.Now()
	err := r.dispatcher.Dispatch(dispatchCtx, msg)
	cancel()
	latency := time.Since(start)

	if err == nil {
		r.record(msg.Topic, "success", latency)
		if ackErr := r.source.Ack(ctx, msg.ID, r.opts.Now()); ackErr != nil {
			log.WithError(ackErr).Warn("outbox: ack failed")
		}
		return
	}

	r.record(msg.Topic, "failure", latency)
	lastErr := truncate(err, r.opts.LastErrorMaxLen)

	if msg.Attempts >= r.opts.MaxAttempts {
		r.m.deadTotal.WithLabelValues(msg.Topic).Inc()
		log.WithError(err).Error("outbox: message dead after max attempts")
		if deadErr := r.source.Dead(ctx, msg.ID, lastErr); deadErr != nil {
			log.WithError(deadErr).Warn("outbox: dead update failed")
		}
		return
	}

	next := r.opts.Now().Add(backoff(msg.Attempts, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
	log.WithError(err).WithField("next_attempt", next).Warn("outbox: dispatch failed")
	if nackErr := r.source.Nack(ctx, msg.ID, lastErr, next); nackErr != nil {
		log.WithError(nackErr).Warn("outbox: nack failed")
	}
}

func (r *Relay) observeDepth(ctx context.Context) error {
	pending, err := r.source.Pending(ctx)
	if err != nil {
		return err
	}
	r.m.pending.Set(float64(pending))
	return nil
}

func (r *Relay) record(topic, result string, latency time.Duration) {
	r.m.dispatchTotal.WithLabelValues(topic, result).Inc()
	r.m.dispatchLatency.WithLabelValues(topic, result).Observe(latency.Seconds())
}

func logrusNop() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
