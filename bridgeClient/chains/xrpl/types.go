package xrpl

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"
)

// Request is a rippled JSON-RPC request. rippled takes a single params object
// wrapped in an array.
type Request struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     int64         `json:"id"`
}

type Response struct {
	Result json.RawMessage `json:"result"`
}

// resultStatus is the envelope every rippled result carries.
type resultStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// RPCError is an error status returned by the node.
type RPCError struct {
	Method  string
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return e.Method + ": " + e.Code
	}
	return e.Method + ": " + e.Code + ": " + e.Message
}

type ledgerResult struct {
	LedgerIndex uint32 `json:"ledger_index"`
	LedgerHash  string `json:"ledger_hash"`
	Validated   bool   `json:"validated"`
}

type AccountData struct {
	Account  string `json:"Account"`
	Balance  string `json:"Balance"`
	Sequence uint32 `json:"Sequence"`
}

type accountInfoResult struct {
	AccountData        AccountData `json:"account_data"`
	LedgerCurrentIndex uint32      `json:"ledger_current_index"`
}

// Memo is the wire form of a transaction memo; MemoData is uppercase hex.
type Memo struct {
	Memo MemoFields `json:"Memo"`
}

type MemoFields struct {
	MemoData   string `json:"MemoData,omitempty"`
	MemoFormat string `json:"MemoFormat,omitempty"`
	MemoType   string `json:"MemoType,omitempty"`
}

type TxMeta struct {
	TransactionResult string          `json:"TransactionResult"`
	DeliveredAmount   json.RawMessage `json:"delivered_amount,omitempty"`
}

// Tx is a transaction as returned by the tx method (API version 1).
type Tx struct {
	Hash               string          `json:"hash"`
	TransactionType    string          `json:"TransactionType"`
	Account            string          `json:"Account"`
	Destination        string          `json:"Destination"`
	Amount             json.RawMessage `json:"Amount"`
	Fee                string          `json:"Fee"`
	Sequence           uint32          `json:"Sequence"`
	LastLedgerSequence uint32          `json:"LastLedgerSequence"`
	Memos              []Memo          `json:"Memos,omitempty"`
	Date               uint32          `json:"date"`
	LedgerIndex        uint32          `json:"ledger_index"`
	Validated          bool            `json:"validated"`
	Meta               *TxMeta         `json:"meta,omitempty"`
}

// Result is the engine result code, empty until the transaction is validated.
func (t *Tx) Result() string {
	if t.Meta == nil {
		return ""
	}
	return t.Meta.TransactionResult
}

func (t *Tx) Succeeded() bool {
	return t.Validated && t.Result() == "tesSUCCESS"
}

// CloseTime is the close time of the ledger that validated the transaction.
func (t *Tx) CloseTime() time.Time {
	return time.Unix(int64(RippleTimeToUnix(t.Date)), 0).UTC()
}

// Drops returns the native amount, or nil for issued currency amounts.
func (t *Tx) Drops() *big.Int {
	var s string
	if err := json.Unmarshal(t.Amount, &s); err != nil {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}

// MemoData returns the decoded-from-JSON memo payloads, uppercase hex.
func (t *Tx) MemoData() []string {
	out := make([]string, 0, len(t.Memos))
	for _, m := range t.Memos {
		out = append(out, strings.ToUpper(m.Memo.MemoData))
	}
	return out
}

type SubmitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultCode    int    `json:"engine_result_code"`
	EngineResultMessage string `json:"engine_result_message"`
	Accepted            bool   `json:"accepted"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

// SignedTx is a signed transaction blob ready for submit.
type SignedTx struct {
	Blob               string
	Hash               string
	LastLedgerSequence uint32
}

type signResult struct {
	TxBlob string `json:"tx_blob"`
	TxJSON struct {
		Hash               string `json:"hash"`
		LastLedgerSequence uint32 `json:"LastLedgerSequence"`
	} `json:"tx_json"`
}
