package api

import (
	"context"

	"github.com/smartaccounts/bridge-relay/bridgeClient/cache"
	"github.com/smartaccounts/bridge-relay/bridgeClient/store"
)

// OperationSource is the read side of the operation journal.
type OperationSource interface {
	ListOperations(ctx context.Context, limit int) ([]store.Operation, error)
	GetOperation(ctx context.Context, operationID string) (*store.Operation, error)
}

// CacheInspector lists the contract metadata loaded so far.
type CacheInspector interface {
	Entries() []cache.EntryInfo
}
