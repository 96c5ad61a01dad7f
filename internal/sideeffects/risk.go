package sideeffects

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tprmgrc/internal/events"
)

// RiskEvents trigger a risk analysis of the affected contract
var RiskEvents = []events.Type{
	events.ContractCreated, events.ContractVersioned, events.ContractAmended,
	events.TermCreated, events.TermUpdated,
	events.RenewalCreated,
}

// RiskJob is the payload pushed to the analysis queue. Consumers dedupe on
// EventID.
type RiskJob struct {
	EventID     string    `json:"event_id"`
	Event       string    `json:"event"`
	Entity      string    `json:"entity"`
	EntityID    string    `json:"entity_id"`
	ContractID  int64     `json:"contract_id,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// RiskAnalysis hands events over to the external risk analysis service
type RiskAnalysis struct {
	queue RiskQueue
}

// Handle enqueues one job per event
func (r *RiskAnalysis) Handle(ctx context.Context, ev events.Event) error {
	job, err := json.Marshal(RiskJob{
		EventID:     ev.ID,
		Event:       string(ev.Type),
		Entity:      ev.Entity,
		EntityID:    ev.EntityID,
		ContractID:  ev.ContractID,
		RequestedBy: ev.Actor,
		RequestedAt: ev.At,
	})
	if err != nil {
		return fmt.Errorf("encoding risk job: %w", err)
	}
	if err := r.queue.EnqueueRiskAnalysis(ctx, job); err != nil {
		return fmt.Errorf("enqueueing risk job %s: %w", ev.ID, err)
	}
	return nil
}
