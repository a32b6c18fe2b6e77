// Package store contains the GORM models of the operation journal.
//
// Tables (in-memory SQLite, one database per process):
//
//	operations             one row per bridge flow
//	operation_transitions  every status change of a flow, in order
package store

import (
	"gorm.io/gorm"
)

// Operation is one bridge flow started by this process.
type Operation struct {
	gorm.Model
	OperationID     string `gorm:"uniqueIndex;not null"` // uuid assigned when the flow starts
	Flow            string `gorm:"index;not null"`       // "deposit", "mint", ...
	Status          string `gorm:"index;not null"`       // latest status, see bridge.Status
	Instruction     string // memo hex of the first payment
	LedgerTxHash    string `gorm:"index"` // latest payment hash
	ChainTxHash     string // hash of the confirming chain transaction
	PersonalAccount string
	ErrorMsg        string                `gorm:"type:text"`
	Transitions     []OperationTransition `gorm:"foreignKey:OperationID;references:OperationID"`
}

// OperationTransition records one status change.
type OperationTransition struct {
	gorm.Model
	OperationID string `gorm:"index;not null"`
	Status      string `gorm:"not null"`
	Detail      []byte // JSON-encoded step details
}
