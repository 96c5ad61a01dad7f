package entities

import "time"

// ContractKind distinguishes main contracts from the rows hanging off them
type ContractKind string

const (
	KindMain        ContractKind = "MAIN"
	KindSubcontract ContractKind = "SUBCONTRACT"
	KindAmendment   ContractKind = "AMENDMENT"
)

// ContractStatus is the lifecycle state of a contract
type ContractStatus string

const (
	StatusDraft             ContractStatus = "DRAFT"
	StatusUnderNegotiation  ContractStatus = "UNDER_NEGOTIATION"
	StatusPendingAssignment ContractStatus = "PENDING_ASSIGNMENT"
	StatusUnderReview       ContractStatus = "UNDER_REVIEW"
	StatusApproved          ContractStatus = "APPROVED"
	StatusRejected          ContractStatus = "REJECTED"
	StatusActive            ContractStatus = "ACTIVE"
	StatusExpired           ContractStatus = "EXPIRED"
	StatusTerminated        ContractStatus = "TERMINATED"
)

// WorkflowStage is the projection of ContractStatus shown to users
type WorkflowStage string

const (
	StageDraft       WorkflowStage = "draft"
	StageNegotiation WorkflowStage = "negotiation"
	StageUnderReview WorkflowStage = "under_review"
	StageApproved    WorkflowStage = "approved"
	StageExecuted    WorkflowStage = "executed"
	StageActive      WorkflowStage = "active"
	StageRejected    WorkflowStage = "rejected"
	StageExpired     WorkflowStage = "expired"
	StageTerminated  WorkflowStage = "terminated"
)

// Contract is one row of a contract chain
type Contract struct {
	ContractID        int64          `json:"contract_id" gorm:"column:contract_id;primaryKey;autoIncrement"`
	ContractNumber    string         `json:"contract_number" gorm:"column:contract_number;type:nvarchar(150);not null;uniqueIndex:ux_contracts_number"`
	ContractTitle     string         `json:"contract_title" gorm:"column:contract_title;type:nvarchar(500)"`
	ContractType      string         `json:"contract_type" gorm:"column:contract_type;type:nvarchar(100)"`
	ContractKind      ContractKind   `json:"contract_kind" gorm:"column:contract_kind;type:nvarchar(20);not null;index"`
	Description       string         `json:"description" gorm:"column:description"`
	VersionNumber     VersionNumber  `json:"version_number" gorm:"column:version_number;type:decimal(10,1);not null"`
	PreviousVersionID *int64         `json:"previous_version_id,omitempty" gorm:"column:previous_version_id;index"`
	ParentContractID  *int64         `json:"parent_contract_id,omitempty" gorm:"column:parent_contract_id;index"`
	MainContractID    *int64         `json:"main_contract_id,omitempty" gorm:"column:main_contract_id;index"`
	VendorID          *int64         `json:"vendor_id,omitempty" gorm:"column:vendor_id;index"`
	Status            ContractStatus `json:"status" gorm:"column:status;type:nvarchar(40);not null;index"`
	WorkflowStage     WorkflowStage  `json:"workflow_stage" gorm:"column:workflow_stage;type:nvarchar(40);not null"`

	// financial
	ContractValue *float64 `json:"contract_value,omitempty" gorm:"column:contract_value;type:decimal(18,2)"`
	Currency      string   `json:"currency" gorm:"column:currency;type:nvarchar(10)"`
	PaymentTerms  string   `json:"payment_terms" gorm:"column:payment_terms;type:nvarchar(500)"`

	// legal
	GoverningLaw string `json:"governing_law" gorm:"column:governing_law;type:nvarchar(200)"`
	Jurisdiction string `json:"jurisdiction" gorm:"column:jurisdiction;type:nvarchar(200)"`
	FilePath     string `json:"file_path" gorm:"column:file_path;type:nvarchar(1000)"`

	// dates
	StartDate         *time.Time `json:"start_date,omitempty" gorm:"column:start_date"`
	EndDate           *time.Time `json:"end_date,omitempty" gorm:"column:end_date;index"`
	SignedDate        *time.Time `json:"signed_date,omitempty" gorm:"column:signed_date"`
	NotificationDate  *time.Time `json:"notification_date,omitempty" gorm:"column:notification_date"`
	RenewalNoticeDays *int       `json:"renewal_notice_days,omitempty" gorm:"column:renewal_notice_days"`
	AutoRenew         bool       `json:"auto_renew" gorm:"column:auto_renew;not null;default:0"`
	TerminationNotice *int       `json:"termination_notice_days,omitempty" gorm:"column:termination_notice_days"`

	// opaque bags
	InsuranceRequirements JSONMap `json:"insurance_requirements" gorm:"column:insurance_requirements"`
	DataProtectionClauses JSONMap `json:"data_protection_clauses" gorm:"column:data_protection_clauses"`
	CustomFields          JSONMap `json:"custom_fields" gorm:"column:custom_fields"`
	DataInventory         JSONMap `json:"data_inventory" gorm:"column:data_inventory"`

	PermissionRequired bool `json:"permission_required" gorm:"column:permission_required;not null;default:0"`

	// archive
	IsArchived      bool       `json:"is_archived" gorm:"column:is_archived;not null;default:0;index"`
	ArchivedDate    *time.Time `json:"archived_date,omitempty" gorm:"column:archived_date"`
	ArchivedBy      string     `json:"archived_by,omitempty" gorm:"column:archived_by;type:nvarchar(150)"`
	ArchiveReason   string     `json:"archive_reason,omitempty" gorm:"column:archive_reason;type:nvarchar(500)"`
	ArchiveComments string     `json:"archive_comments,omitempty" gorm:"column:archive_comments"`
	CanBeRestored   bool       `json:"can_be_restored" gorm:"column:can_be_restored;not null"`

	CreatedBy  string    `json:"created_by" gorm:"column:created_by;type:nvarchar(150)"`
	UpdatedBy  string    `json:"updated_by" gorm:"column:updated_by;type:nvarchar(150)"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	RowVersion int64     `json:"row_version" gorm:"column:row_version;not null;default:1"`
}

// TableName especifica o nome da tabela no banco
func (Contract) TableName() string {
	return "contracts"
}

// RootID is the id of the chain root this row belongs to
func (c *Contract) RootID() int64 {
	if c.MainContractID != nil && *c.MainContractID != 0 {
		return *c.MainContractID
	}
	return c.ContractID
}

// ContractTerm is a term owned by exactly one contract row
type ContractTerm struct {
	ID               int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TermID           string    `json:"term_id" gorm:"column:term_id;type:nvarchar(150);not null;uniqueIndex:ux_contract_terms_term_id"`
	ContractID       int64     `json:"contract_id" gorm:"column:contract_id;not null;index"`
	TermCategory     string    `json:"term_category" gorm:"column:term_category;type:nvarchar(100)"`
	TermTitle        string    `json:"term_title" gorm:"column:term_title;type:nvarchar(500)"`
	TermText         string    `json:"term_text" gorm:"column:term_text"`
	RiskLevel        string    `json:"risk_level" gorm:"column:risk_level;type:nvarchar(20)"`
	ComplianceStatus string    `json:"compliance_status" gorm:"column:compliance_status;type:nvarchar(40)"`
	ApprovalStatus   string    `json:"approval_status" gorm:"column:approval_status;type:nvarchar(40)"`
	VersionNumber    string    `json:"version_number" gorm:"column:version_number;type:nvarchar(20)"`
	IsStandard       bool      `json:"is_standard" gorm:"column:is_standard;not null;default:0"`
	CreatedBy        string    `json:"created_by" gorm:"column:created_by;type:nvarchar(150)"`
	CreatedAt        time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (ContractTerm) TableName() string {
	return "contract_terms"
}

// ContractClause is a clause owned by exactly one contract row
type ContractClause struct {
	ID                    int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ClauseID              string    `json:"clause_id" gorm:"column:clause_id;type:nvarchar(150);not null;uniqueIndex:ux_contract_clauses_clause_id"`
	ContractID            int64     `json:"contract_id" gorm:"column:contract_id;not null;index"`
	ClauseName            string    `json:"clause_name" gorm:"column:clause_name;type:nvarchar(300)"`
	ClauseType            string    `json:"clause_type" gorm:"column:clause_type;type:nvarchar(100)"`
	ClauseText            string    `json:"clause_text" gorm:"column:clause_text"`
	RiskLevel             string    `json:"risk_level" gorm:"column:risk_level;type:nvarchar(20)"`
	IsStandard            bool      `json:"is_standard" gorm:"column:is_standard;not null;default:0"`
	LegalReviewRequired   bool      `json:"legal_review_required" gorm:"column:legal_review_required;not null;default:0"`
	RenewalNoticeDays     *int      `json:"renewal_notice_days,omitempty" gorm:"column:renewal_notice_days"`
	AutoRenewalTerms      string    `json:"auto_renewal_terms,omitempty" gorm:"column:auto_renewal_terms"`
	TerminationNoticeDays *int      `json:"termination_notice_days,omitempty" gorm:"column:termination_notice_days"`
	TerminationConditions string    `json:"termination_conditions,omitempty" gorm:"column:termination_conditions"`
	VersionNumber         string    `json:"version_number" gorm:"column:version_number;type:nvarchar(20)"`
	CreatedBy             string    `json:"created_by" gorm:"column:created_by;type:nvarchar(150)"`
	CreatedAt             time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (ContractClause) TableName() string {
	return "contract_clauses"
}
