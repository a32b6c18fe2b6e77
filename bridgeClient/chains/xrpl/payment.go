package xrpl

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

const (
	DefaultFee              = "10"
	DefaultLastLedgerOffset = 20
)

// Payment is the JSON form of a native Payment transaction.
type Payment struct {
	TransactionType    string `json:"TransactionType"`
	Account            string `json:"Account"`
	Destination        string `json:"Destination"`
	Amount             string `json:"Amount"`
	Fee                string `json:"Fee"`
	Sequence           uint32 `json:"Sequence"`
	LastLedgerSequence uint32 `json:"LastLedgerSequence"`
	Memos              []Memo `json:"Memos,omitempty"`
}

// Flatten is the field map handed to the binary codec when signing locally.
func (p *Payment) Flatten() map[string]interface{} {
	flat := map[string]interface{}{
		"TransactionType":    p.TransactionType,
		"Account":            p.Account,
		"Destination":        p.Destination,
		"Amount":             p.Amount,
		"Fee":                p.Fee,
		"Sequence":           p.Sequence,
		"LastLedgerSequence": p.LastLedgerSequence,
	}
	if len(p.Memos) == 0 {
		return flat
	}
	memos := make([]interface{}, 0, len(p.Memos))
	for _, m := range p.Memos {
		fields := make(map[string]interface{}, 3)
		if m.Memo.MemoData != "" {
			fields["MemoData"] = m.Memo.MemoData
		}
		if m.Memo.MemoFormat != "" {
			fields["MemoFormat"] = m.Memo.MemoFormat
		}
		if m.Memo.MemoType != "" {
			fields["MemoType"] = m.Memo.MemoType
		}
		memos = append(memos, map[string]interface{}{"Memo": fields})
	}
	flat["Memos"] = memos
	return flat
}

// NewMemo wraps data as a memo with uppercase hex MemoData.
func NewMemo(data []byte) Memo {
	return Memo{Memo: MemoFields{MemoData: strings.ToUpper(hex.EncodeToString(data))}}
}

// MemoFromHex accepts hex with or without a 0x prefix.
func MemoFromHex(s string) (Memo, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return Memo{}, errors.NewFormatErrorf("memo %q is not hex", s)
	}
	return NewMemo(data), nil
}

// PaymentRequest describes a payment from the signer's account. A zero
// LastLedgerSequence means latest validated ledger plus the sender's offset.
type PaymentRequest struct {
	Destination        string
	Drops              *big.Int
	Memos              []Memo
	LastLedgerSequence uint32
}

// Sender builds, signs and submits payments for one account.
type Sender struct {
	client           *Client
	signer           Signer
	fee              string
	lastLedgerOffset uint32
	logger           zerolog.Logger
}

func NewSender(client *Client, signer Signer, fee string, lastLedgerOffset uint32, logger zerolog.Logger) *Sender {
	if fee == "" {
		fee = DefaultFee
	}
	if lastLedgerOffset == 0 {
		lastLedgerOffset = DefaultLastLedgerOffset
	}
	return &Sender{
		client:           client,
		signer:           signer,
		fee:              fee,
		lastLedgerOffset: lastLedgerOffset,
		logger:           logger.With().Str("component", "xrpl_sender").Str("account", signer.Address()).Logger(),
	}
}

func (s *Sender) Address() string {
	return s.signer.Address()
}

// Build fills in sequence and expiry for req.
func (s *Sender) Build(ctx context.Context, req PaymentRequest) (*Payment, error) {
	if err := ValidateAddress(req.Destination); err != nil {
		return nil, err
	}
	if req.Drops == nil || req.Drops.Sign() < 0 {
		return nil, errors.NewRangeError("amount", "payment amount must be a non-negative drop count")
	}

	lastLedger := req.LastLedgerSequence
	if lastLedger == 0 {
		latest, err := s.client.LatestValidatedSequence(ctx)
		if err != nil {
			return nil, err
		}
		lastLedger = latest + s.lastLedgerOffset
	}

	seq, err := s.client.NextAccountSequence(ctx, s.signer.Address())
	if err != nil {
		return nil, err
	}

	return &Payment{
		TransactionType:    "Payment",
		Account:            s.signer.Address(),
		Destination:        req.Destination,
		Amount:             req.Drops.String(),
		Fee:                s.fee,
		Sequence:           seq,
		LastLedgerSequence: lastLedger,
		Memos:              req.Memos,
	}, nil
}

// Send submits req and waits for validation, returning the validated transaction.
func (s *Sender) Send(ctx context.Context, req PaymentRequest) (*Tx, error) {
	payment, err := s.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	signed, err := s.signer.Sign(ctx, payment)
	if err != nil {
		return nil, err
	}
	if signed.LastLedgerSequence == 0 {
		signed.LastLedgerSequence = payment.LastLedgerSequence
	}

	s.logger.Info().
		Str("destination", payment.Destination).
		Str("amount", FormatDrops(req.Drops)).
		Uint32("sequence", payment.Sequence).
		Int("memos", len(payment.Memos)).
		Msg("sending payment")

	return s.client.SubmitAndWait(ctx, signed)
}

// GetTx looks up a transaction by hash through the sender's client.
func (s *Sender) GetTx(ctx context.Context, hash string) (*Tx, error) {
	return s.client.GetTx(ctx, hash)
}

// FormatDrops renders a drop amount as XRP, e.g. "1.5 XRP".
func FormatDrops(drops *big.Int) string {
	if drops == nil {
		return "0 XRP"
	}
	return decimal.NewFromBigInt(drops, 0).Div(DropsPerXRP).String() + " XRP"
}
