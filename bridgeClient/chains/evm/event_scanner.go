package evm

import (
	"context"
	"fmt"
	"iter"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/metrics"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

// DefaultScanStride is the number of blocks covered by one log query.
const DefaultScanStride = 30

// BlockRange is the half-open block window [Start, End).
type BlockRange struct {
	Start uint64
	End   uint64
}

// Window returns [start, start+length).
func Window(start, length uint64) BlockRange {
	return BlockRange{Start: start, End: start + length}
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// EventScanner enumerates logs of a set of events over a block range in
// fixed strides, never reading past the current head.
type EventScanner struct {
	reader  ChainReader
	stride  uint64
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewEventScanner(reader ChainReader, stride uint64, m *metrics.Metrics, logger zerolog.Logger) *EventScanner {
	if stride == 0 {
		stride = DefaultScanStride
	}
	return &EventScanner{
		reader:  reader,
		stride:  stride,
		metrics: m,
		logger:  logger.With().Str("component", "evm_event_scanner").Logger(),
	}
}

// Scan lazily yields every log in r emitted by one of events' contracts with
// one of events' signatures, in query order. The head is re-read before each
// stride and scanning stops once a stride would start beyond it. An RPC error
// is yielded once and ends the sequence. Each range over the result issues
// fresh queries.
func (s *EventScanner) Scan(ctx context.Context, events []*registry.Event, r BlockRange) iter.Seq2[types.Log, error] {
	return func(yield func(types.Log, error) bool) {
		if len(events) == 0 || r.End <= r.Start {
			return
		}

		wanted := make(map[ethcommon.Hash]bool, len(events))
		topics := make([]ethcommon.Hash, 0, len(events))
		seenAddr := make(map[ethcommon.Address]bool, len(events))
		addresses := make([]ethcommon.Address, 0, len(events))
		for _, ev := range events {
			sig := ev.Signature()
			if !wanted[sig] {
				wanted[sig] = true
				topics = append(topics, sig)
			}
			if addr := ev.Contract.Address; !seenAddr[addr] {
				seenAddr[addr] = true
				addresses = append(addresses, addr)
			}
		}

		for start := r.Start; start < r.End; start += s.stride {
			head, err := s.reader.GetLatestBlock(ctx)
			if err != nil {
				yield(types.Log{}, err)
				return
			}
			if start > head {
				return
			}
			end := min(start+s.stride-1, r.End-1, head)

			logs, err := s.reader.FilterLogs(ctx, ethereum.FilterQuery{
				FromBlock: new(big.Int).SetUint64(start),
				ToBlock:   new(big.Int).SetUint64(end),
				Addresses: addresses,
				Topics:    [][]ethcommon.Hash{topics},
			})
			if err != nil {
				s.metrics.IncScanQuery("error")
				yield(types.Log{}, err)
				return
			}
			s.metrics.IncScanQuery("ok")

			s.logger.Debug().
				Uint64("from_block", start).
				Uint64("to_block", end).
				Int("logs", len(logs)).
				Msg("scanned block window")

			for _, log := range logs {
				// Providers are not trusted to honour the topic filter.
				if len(log.Topics) == 0 || !wanted[log.Topics[0]] {
					continue
				}
				s.metrics.IncLogMatched(log.Topics[0].Hex())
				if !yield(log, nil) {
					return
				}
			}
		}
	}
}

// GetSingle returns the first log of event in block, or a not-found error.
func (s *EventScanner) GetSingle(ctx context.Context, event *registry.Event, block uint64) (types.Log, error) {
	log, err := s.first(ctx, event, block, func(types.Log) bool { return true })
	if err != nil {
		return types.Log{}, err
	}
	if log == nil {
		return types.Log{}, errors.NewNotFoundError(chainName, fmt.Sprintf("no %s log in block %d", event.Name, block))
	}
	return *log, nil
}

// GetInTx returns the log of event emitted in block by transaction txHash,
// or a not-found error.
func (s *EventScanner) GetInTx(ctx context.Context, event *registry.Event, block uint64, txHash ethcommon.Hash) (types.Log, error) {
	log, err := s.first(ctx, event, block, func(l types.Log) bool { return l.TxHash == txHash })
	if err != nil {
		return types.Log{}, err
	}
	if log == nil {
		return types.Log{}, errors.NewNotFoundError(chainName, fmt.Sprintf("no %s log from %s in block %d", event.Name, txHash.Hex(), block))
	}
	return *log, nil
}

func (s *EventScanner) first(ctx context.Context, event *registry.Event, block uint64, match func(types.Log) bool) (*types.Log, error) {
	for log, err := range s.Scan(ctx, []*registry.Event{event}, Window(block, 1)) {
		if err != nil {
			return nil, err
		}
		if match(log) {
			return &log, nil
		}
	}
	return nil, nil
}
