package sideeffects

import (
	"context"
	"errors"
	"fmt"

	"tprmgrc/internal/events"
	"tprmgrc/internal/repositories/sqlserver"
)

// IndexEvents change what the search index shows for a contract
var IndexEvents = []events.Type{
	events.ContractCreated, events.ContractUpdated, events.ContractArchived,
	events.ContractRestored, events.ContractVersioned, events.ContractAmended,
	events.ContractExpired, events.ContractExecuted,
}

// Indexer keeps the search index in line with the store
type Indexer struct {
	store *sqlserver.Internal
	index ContractIndex
}

// Handle re-reads the contract and indexes its current state; a contract
// gone from the store is removed from the index
func (x *Indexer) Handle(ctx context.Context, ev events.Event) error {
	id, ok := ev.NumericID()
	if !ok {
		return fmt.Errorf("contract event with id %q", ev.EntityID)
	}
	c, err := x.store.Reader(ctx).GetContract(id)
	if errors.Is(err, sqlserver.ErrNotFound) {
		return x.index.DeleteContract(ctx, ev.EntityID)
	}
	if err != nil {
		return fmt.Errorf("loading contract %d for indexing: %w", id, err)
	}
	return x.index.IndexContract(ctx, ev.EntityID, events.Snapshot(c))
}
