package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

// LocatorConfig parametrises BlockLocator.
type LocatorConfig struct {
	// SampleDistance is how many blocks behind the head the rate sample is taken.
	SampleDistance uint64
	// Overshoot multiplies the estimated distance to the target so the lower
	// bound lands before it.
	Overshoot uint64
	// Tolerance is the accepted |block time - target| in seconds (exclusive).
	Tolerance uint64
	// MaxIterations caps the binary search.
	MaxIterations int
}

func DefaultLocatorConfig() LocatorConfig {
	return LocatorConfig{
		SampleDistance: 1_000_000,
		Overshoot:      2,
		Tolerance:      10,
		MaxIterations:  64,
	}
}

// BlockLocator maps a wall-clock timestamp to a nearby block number.
type BlockLocator struct {
	reader ChainReader
	cfg    LocatorConfig
	logger zerolog.Logger
}

func NewBlockLocator(reader ChainReader, cfg LocatorConfig, logger zerolog.Logger) *BlockLocator {
	def := DefaultLocatorConfig()
	if cfg.SampleDistance == 0 {
		cfg.SampleDistance = def.SampleDistance
	}
	if cfg.Overshoot == 0 {
		cfg.Overshoot = def.Overshoot
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	return &BlockLocator{
		reader: reader,
		cfg:    cfg,
		logger: logger.With().Str("component", "evm_block_locator").Logger(),
	}
}

type blockPoint struct {
	number uint64
	time   uint64
}

func (l *BlockLocator) point(ctx context.Context, number *big.Int) (blockPoint, error) {
	header, err := l.reader.HeaderByNumber(ctx, number)
	if err != nil {
		return blockPoint{}, err
	}
	return pointOf(header), nil
}

func pointOf(h *types.Header) blockPoint {
	return blockPoint{number: h.Number.Uint64(), time: h.Time}
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Locate returns a block whose timestamp is within the configured tolerance
// of target (unix seconds). The target must lie strictly between the search
// lower bound and the latest block, otherwise a range error is returned.
func (l *BlockLocator) Locate(ctx context.Context, target uint64) (uint64, error) {
	latest, err := l.point(ctx, nil)
	if err != nil {
		return 0, err
	}
	if target >= latest.time {
		return 0, errors.NewRangeError("timestamp",
			fmt.Sprintf("%d is not before the latest block time %d", target, latest.time))
	}

	var sampleNum uint64
	if latest.number > l.cfg.SampleDistance {
		sampleNum = latest.number - l.cfg.SampleDistance
	}
	if sampleNum == latest.number {
		return 0, errors.NewRangeError("timestamp", "chain has a single block, no production rate")
	}
	sample, err := l.point(ctx, new(big.Int).SetUint64(sampleNum))
	if err != nil {
		return 0, err
	}
	if latest.time <= sample.time {
		return 0, errors.NewRangeError("timestamp",
			fmt.Sprintf("blocks %d and %d share a timestamp, no production rate", sample.number, latest.number))
	}

	rate := float64(latest.number-sample.number) / float64(latest.time-sample.time)
	back := uint64(float64(latest.time-target)*rate) * l.cfg.Overshoot

	var lowerNum uint64
	if back < latest.number {
		lowerNum = latest.number - back
	}
	lower, err := l.point(ctx, new(big.Int).SetUint64(lowerNum))
	if err != nil {
		return 0, err
	}
	if target <= lower.time {
		return 0, errors.NewRangeError("timestamp",
			fmt.Sprintf("%d is not after the search lower bound block %d (time %d)", target, lower.number, lower.time))
	}

	l.logger.Debug().
		Uint64("target", target).
		Uint64("lower", lower.number).
		Uint64("upper", latest.number).
		Float64("blocks_per_second", rate).
		Msg("searching block near timestamp")

	lo, hi := lower, latest
	for i := 0; i < l.cfg.MaxIterations; i++ {
		if hi.number-lo.number <= 1 {
			break
		}

		mid, err := l.point(ctx, new(big.Int).SetUint64((lo.number+hi.number)/2))
		if err != nil {
			return 0, err
		}
		if distance(mid.time, target) < l.cfg.Tolerance {
			return mid.number, nil
		}
		if mid.time > target {
			hi = mid
		} else {
			lo = mid
		}
	}

	for _, edge := range []blockPoint{lo, hi} {
		if distance(edge.time, target) < l.cfg.Tolerance {
			return edge.number, nil
		}
	}
	return 0, errors.NewNotFoundError(chainName,
		fmt.Sprintf("no block within %ds of %d between %d and %d", l.cfg.Tolerance, target, lo.number, hi.number))
}
