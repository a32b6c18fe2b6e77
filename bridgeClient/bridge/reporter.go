package bridge

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Step is one reported transition of an operation.
type Step struct {
	OperationID  string
	Flow         string
	Status       Status
	LedgerTxHash string
	ChainTxHash  string
	Block        uint64
	Links        []string
	Message      string
}

// Reporter receives every step of every flow, in order.
type Reporter interface {
	Report(Step)
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(Step)

func (f ReporterFunc) Report(s Step) { f(s) }

// Reporters fans a step out to several reporters.
type Reporters []Reporter

func (rs Reporters) Report(s Step) {
	for _, r := range rs {
		if r != nil {
			r.Report(s)
		}
	}
}

// LogReporter writes steps as structured log events.
type LogReporter struct {
	logger zerolog.Logger
}

func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger.With().Str("component", "bridge_reporter").Logger()}
}

func (r *LogReporter) Report(s Step) {
	ev := r.logger.Info()
	if s.Status == StatusFailed || s.Status == StatusTimedOut {
		ev = r.logger.Warn()
	}
	ev = ev.Str("operation_id", s.OperationID).
		Str("flow", s.Flow).
		Str("status", s.Status.String())
	if s.LedgerTxHash != "" {
		ev = ev.Str("ledger_tx", s.LedgerTxHash)
	}
	if s.ChainTxHash != "" {
		ev = ev.Str("chain_tx", s.ChainTxHash)
	}
	if s.Block != 0 {
		ev = ev.Uint64("block", s.Block)
	}
	ev.Msg(s.Message)
}

// TextReporter prints human readable step summaries.
type TextReporter struct {
	w io.Writer
}

func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

func (r *TextReporter) Report(s Step) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", s.Status, s.Message)
	if s.LedgerTxHash != "" {
		fmt.Fprintf(&b, "\n  ledger tx: %s", s.LedgerTxHash)
	}
	if s.ChainTxHash != "" {
		fmt.Fprintf(&b, "\n  chain tx:  %s", s.ChainTxHash)
	}
	if s.Block != 0 {
		fmt.Fprintf(&b, "\n  block:     %d", s.Block)
	}
	for _, l := range s.Links {
		fmt.Fprintf(&b, "\n  %s", l)
	}
	fmt.Fprintln(r.w, b.String())
}
