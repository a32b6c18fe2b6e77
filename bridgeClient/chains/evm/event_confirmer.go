package evm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/metrics"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

// DefaultPollInterval is the fixed pause between confirmation passes.
const DefaultPollInterval = 10 * time.Second

// Predicate selects the awaited event among decoded candidates.
type Predicate func(*registry.EventData) bool

type waitOptions struct {
	pollInterval time.Duration
	message      string
}

// WaitOption customises a single WaitFor call.
type WaitOption func(*waitOptions)

func WithPollInterval(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMessage sets the progress message logged while waiting.
func WithMessage(msg string) WaitOption {
	return func(o *waitOptions) { o.message = msg }
}

// EventConfirmer repeatedly scans a bounded window until an event satisfying
// a predicate shows up or the chain moves past the window.
type EventConfirmer struct {
	reader       ChainReader
	scanner      *EventScanner
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func NewEventConfirmer(reader ChainReader, scanner *EventScanner, pollInterval time.Duration, m *metrics.Metrics, logger zerolog.Logger) *EventConfirmer {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &EventConfirmer{
		reader:       reader,
		scanner:      scanner,
		pollInterval: pollInterval,
		metrics:      m,
		logger:       logger.With().Str("component", "evm_event_confirmer").Logger(),
	}
}

// WaitFor returns the first decoded event in r satisfying predicate.
//
// It returns (nil, nil) when the head observed before a pass was already
// beyond r.End and that pass found nothing: the window is complete and the
// event did not happen. RPC errors abort the wait. Cancelling ctx returns
// ctx.Err(). Logs that fail to decode are skipped.
func (c *EventConfirmer) WaitFor(
	ctx context.Context,
	event *registry.Event,
	r BlockRange,
	predicate Predicate,
	opts ...WaitOption,
) (*registry.EventData, error) {
	o := waitOptions{pollInterval: c.pollInterval, message: "waiting for " + event.Name}
	for _, opt := range opts {
		opt(&o)
	}

	log := c.logger.With().
		Str("event", event.Name).
		Str("range", r.String()).
		Logger()
	log.Info().Dur("poll_interval", o.pollInterval).Msg(o.message)

	for pass := 1; ; pass++ {
		head, err := c.reader.GetLatestBlock(ctx)
		if err != nil {
			return nil, err
		}
		final := head > r.End

		for l, err := range c.scanner.Scan(ctx, []*registry.Event{event}, r) {
			if err != nil {
				return nil, err
			}
			data, err := event.Decode(l)
			if err != nil {
				log.Warn().Err(err).Str("tx_hash", l.TxHash.Hex()).Msg("skipping undecodable log")
				continue
			}
			if predicate(data) {
				c.metrics.IncConfirmationPass(event.Name)
				log.Info().
					Int("pass", pass).
					Uint64("block", data.BlockNumber).
					Str("tx_hash", data.TxHash.Hex()).
					Msg("event found")
				return data, nil
			}
		}
		c.metrics.IncConfirmationPass(event.Name)

		if final {
			log.Warn().Int("passes", pass).Uint64("head", head).Msg("window passed without a matching event")
			return nil, nil
		}

		log.Debug().Int("pass", pass).Uint64("head", head).Msg(o.message)

		timer := time.NewTimer(o.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
