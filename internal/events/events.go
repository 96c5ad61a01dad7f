// Package events is the in-process side-effect bus. Engines publish after
// their transaction commits; handlers never see uncommitted state.
package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Type names a state transition
type Type string

const (
	ContractCreated   Type = "contract.created"
	ContractUpdated   Type = "contract.updated"
	ContractArchived  Type = "contract.archived"
	ContractRestored  Type = "contract.restored"
	ContractVersioned Type = "contract.versioned"
	ContractAmended   Type = "contract.amended"
	ContractExpired   Type = "contract.expired"
	ContractExecuted  Type = "contract.executed"

	TermCreated   Type = "term.created"
	TermUpdated   Type = "term.updated"
	TermDeleted   Type = "term.deleted"
	ClauseCreated Type = "clause.created"
	ClauseUpdated Type = "clause.updated"
	ClauseDeleted Type = "clause.deleted"

	AmendmentUpdated Type = "amendment.updated"
	RenewalCreated   Type = "renewal.created"
	RenewalUpdated   Type = "renewal.updated"
	RenewalDeleted   Type = "renewal.deleted"

	ApprovalAssigned Type = "approval.assigned"
	ApprovalActed    Type = "approval.acted"
	ApprovalExpired  Type = "approval.expired"

	InvitationCreated Type = "invitation.created"
	InvitationUpdated Type = "invitation.updated"
	VendorUpdated     Type = "vendor.updated"
)

// Entity kinds carried on events
const (
	EntityContract   = "contract"
	EntityTerm       = "term"
	EntityClause     = "clause"
	EntityAmendment  = "amendment"
	EntityRenewal    = "renewal"
	EntityApproval   = "approval"
	EntityInvitation = "invitation"
	EntityVendor     = "vendor"
)

// Meta keys
const (
	MetaOriginalTermID = "original_term_id"
	MetaObjectType     = "object_type"
	MetaObjectID       = "object_id"
	MetaStatusFrom     = "status_from"
	MetaStatusTo       = "status_to"
	MetaPageKey        = "page_key"
)

// Event is one committed transition. Handlers get the ids and may re-read
// the store; Before and After are minimal snapshots.
type Event struct {
	ID         string                 `json:"id" bson:"event_id"`
	Type       Type                   `json:"type" bson:"type"`
	Entity     string                 `json:"entity" bson:"entity"`
	EntityID   string                 `json:"entity_id" bson:"entity_id"`
	ContractID int64                  `json:"contract_id,omitempty" bson:"contract_id,omitempty"`
	Actor      string                 `json:"actor,omitempty" bson:"actor,omitempty"`
	At         time.Time              `json:"at" bson:"at"`
	Before     map[string]interface{} `json:"before,omitempty" bson:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty" bson:"after,omitempty"`
	Meta       map[string]string      `json:"meta,omitempty" bson:"meta,omitempty"`
}

// New builds an event for an entity with a numeric id
func New(t Type, entity string, id int64, actor string) Event {
	return NewKeyed(t, entity, strconv.FormatInt(id, 10), actor)
}

// NewKeyed builds an event for an entity with a string id
func NewKeyed(t Type, entity, id, actor string) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     t,
		Entity:   entity,
		EntityID: id,
		Actor:    actor,
		At:       time.Now().UTC(),
	}
}

// WithContract sets the owning contract
func (e Event) WithContract(id int64) Event {
	e.ContractID = id
	return e
}

// WithSnapshots sets Before and After from any JSON-serialisable values
func (e Event) WithSnapshots(before, after interface{}) Event {
	e.Before = Snapshot(before)
	e.After = Snapshot(after)
	return e
}

// WithMeta adds one metadata entry
func (e Event) WithMeta(key, value string) Event {
	m := make(map[string]string, len(e.Meta)+1)
	for k, v := range e.Meta {
		m[k] = v
	}
	m[key] = value
	e.Meta = m
	return e
}

// NumericID parses EntityID
func (e Event) NumericID() (int64, bool) {
	id, err := strconv.ParseInt(e.EntityID, 10, 64)
	return id, err == nil
}

// Snapshot flattens v into a JSON object; nil stays nil
func Snapshot(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

// Batch collects events inside a transaction for publication after commit
type Batch []Event

// Add appends events
func (b *Batch) Add(evs ...Event) {
	*b = append(*b, evs...)
}
