package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/store"
)

// Update carries the operation fields changed by a transition. Empty
// strings leave the stored value untouched.
type Update struct {
	LedgerTxHash    string
	ChainTxHash     string
	PersonalAccount string
	Error           string
	Detail          map[string]string
}

// Journal records bridge operations and their status transitions.
type Journal struct {
	db     *DB
	logger zerolog.Logger
}

func NewJournal(db *DB, logger zerolog.Logger) *Journal {
	return &Journal{
		db:     db,
		logger: logger.With().Str("component", "journal").Logger(),
	}
}

// CreateOperation inserts op with its initial status as the first transition.
func (j *Journal) CreateOperation(ctx context.Context, op *store.Operation) error {
	err := j.db.Client().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(op).Error; err != nil {
			return err
		}
		return tx.Create(&store.OperationTransition{OperationID: op.OperationID, Status: op.Status}).Error
	})
	if err != nil {
		return errors.NewDatabaseError(fmt.Sprintf("failed to create operation %s", op.OperationID), err)
	}
	j.logger.Debug().Str("operation_id", op.OperationID).Str("flow", op.Flow).Msg("operation created")
	return nil
}

// RecordTransition moves an operation to status and appends a transition row.
func (j *Journal) RecordTransition(ctx context.Context, operationID, status string, u Update) error {
	var detail []byte
	if len(u.Detail) > 0 {
		var err error
		if detail, err = json.Marshal(u.Detail); err != nil {
			return errors.NewInternalError("", "failed to encode transition detail", err)
		}
	}

	updates := map[string]interface{}{"status": status}
	if u.LedgerTxHash != "" {
		updates["ledger_tx_hash"] = u.LedgerTxHash
	}
	if u.ChainTxHash != "" {
		updates["chain_tx_hash"] = u.ChainTxHash
	}
	if u.PersonalAccount != "" {
		updates["personal_account"] = u.PersonalAccount
	}
	if u.Error != "" {
		updates["error_msg"] = u.Error
	}

	err := j.db.Client().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&store.Operation{}).Where("operation_id = ?", operationID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&store.OperationTransition{OperationID: operationID, Status: status, Detail: detail}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NewNotFoundError("", fmt.Sprintf("operation %s not found", operationID))
	}
	if err != nil {
		return errors.NewDatabaseError(fmt.Sprintf("failed to record %s for operation %s", status, operationID), err)
	}
	return nil
}

// GetOperation loads an operation with its transitions in order.
func (j *Journal) GetOperation(ctx context.Context, operationID string) (*store.Operation, error) {
	var op store.Operation
	err := j.db.Client().WithContext(ctx).
		Preload("Transitions", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("operation_id = ?", operationID).
		First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NewNotFoundError("", fmt.Sprintf("operation %s not found", operationID))
	}
	if err != nil {
		return nil, errors.NewDatabaseError("failed to load operation", err)
	}
	return &op, nil
}

// ListOperations returns the newest operations first. A non-positive limit returns all.
func (j *Journal) ListOperations(ctx context.Context, limit int) ([]store.Operation, error) {
	q := j.db.Client().WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ops []store.Operation
	if err := q.Find(&ops).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to list operations", err)
	}
	return ops, nil
}
