package api

import (
	"encoding/json"
	"time"

	"github.com/smartaccounts/bridge-relay/bridgeClient/store"
)

// QueryResponse represents the standard query response format
type QueryResponse struct {
	Data      interface{} `json:"data"`
	Generated time.Time   `json:"generated"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Operation is the JSON view of a journaled operation.
type Operation struct {
	OperationID     string       `json:"operation_id"`
	Flow            string       `json:"flow"`
	Status          string       `json:"status"`
	Instruction     string       `json:"instruction,omitempty"`
	LedgerTxHash    string       `json:"ledger_tx_hash,omitempty"`
	ChainTxHash     string       `json:"chain_tx_hash,omitempty"`
	PersonalAccount string       `json:"personal_account,omitempty"`
	Error           string       `json:"error,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Transitions     []Transition `json:"transitions,omitempty"`
}

type Transition struct {
	Status string          `json:"status"`
	At     time.Time       `json:"at"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

func toOperation(op store.Operation) Operation {
	out := Operation{
		OperationID:     op.OperationID,
		Flow:            op.Flow,
		Status:          op.Status,
		Instruction:     op.Instruction,
		LedgerTxHash:    op.LedgerTxHash,
		ChainTxHash:     op.ChainTxHash,
		PersonalAccount: op.PersonalAccount,
		Error:           op.ErrorMsg,
		CreatedAt:       op.CreatedAt,
		UpdatedAt:       op.UpdatedAt,
	}
	for _, t := range op.Transitions {
		tr := Transition{Status: t.Status, At: t.CreatedAt}
		if len(t.Detail) > 0 {
			tr.Detail = json.RawMessage(t.Detail)
		}
		out.Transitions = append(out.Transitions, tr)
	}
	return out
}
