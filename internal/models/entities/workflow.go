package entities

import "time"

// AmendmentStatus is the workflow status of a ContractAmendment
type AmendmentStatus string

const (
	AmendmentPending     AmendmentStatus = "pending"
	AmendmentUnderReview AmendmentStatus = "under_review"
	AmendmentApproved    AmendmentStatus = "approved"
	AmendmentRejected    AmendmentStatus = "rejected"
)

// AffectedArea says which dependent rows an amendment touches
type AffectedArea string

const (
	AffectsTerms   AffectedArea = "terms"
	AffectsClauses AffectedArea = "clauses"
	AffectsBoth    AffectedArea = "both"
)

// ContractAmendment is the companion record of an AMENDMENT contract row.
// ContractID points at the new row, never at the source.
type ContractAmendment struct {
	AmendmentID         int64           `json:"amendment_id" gorm:"column:amendment_id;primaryKey;autoIncrement"`
	ContractID          int64           `json:"contract_id" gorm:"column:contract_id;not null;index"`
	MainContractID      int64           `json:"main_contract_id" gorm:"column:main_contract_id;not null;uniqueIndex:ux_amendments_chain_number,priority:1"`
	AmendmentNumber     string          `json:"amendment_number" gorm:"column:amendment_number;type:nvarchar(100);not null;uniqueIndex:ux_amendments_chain_number,priority:2"`
	AmendmentDate       time.Time       `json:"amendment_date" gorm:"column:amendment_date;not null"`
	EffectiveDate       *time.Time      `json:"effective_date,omitempty" gorm:"column:effective_date"`
	AmendmentReason     string          `json:"amendment_reason" gorm:"column:amendment_reason"`
	ChangesSummary      string          `json:"changes_summary" gorm:"column:changes_summary"`
	FinancialImpact     float64         `json:"financial_impact" gorm:"column:financial_impact;type:decimal(18,2);not null;default:0"`
	WorkflowStatus      AmendmentStatus `json:"workflow_status" gorm:"column:workflow_status;type:nvarchar(20);not null"`
	AffectedArea        AffectedArea    `json:"affected_area" gorm:"column:affected_area;type:nvarchar(20);not null"`
	ApprovalDate        *time.Time      `json:"approval_date,omitempty" gorm:"column:approval_date"`
	InitiatedBy         string          `json:"initiated_by" gorm:"column:initiated_by;type:nvarchar(150)"`
	InitiatedDate       time.Time       `json:"initiated_date" gorm:"column:initiated_date;not null"`
	SupportingDocuments JSONRaw         `json:"supporting_documents,omitempty" gorm:"column:supporting_documents"`
	AmendedTermIDs      string          `json:"amended_term_ids" gorm:"column:amended_term_ids"`
	AmendedClauseIDs    string          `json:"amended_clause_ids" gorm:"column:amended_clause_ids"`
	FilePath            string          `json:"file_path" gorm:"column:file_path;type:nvarchar(1000)"`
	CreatedAt           time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (ContractAmendment) TableName() string {
	return "contract_amendments"
}

// RenewalDecision is what happens to a contract at the end of its term
type RenewalDecision string

const (
	DecisionRenew       RenewalDecision = "RENEW"
	DecisionRenegotiate RenewalDecision = "RENEGOTIATE"
	DecisionTerminate   RenewalDecision = "TERMINATE"
	DecisionPending     RenewalDecision = "PENDING"
)

// RenewalStatus tracks the renewal process itself
type RenewalStatus string

const (
	RenewalInitiated    RenewalStatus = "initiated"
	RenewalUnderReview  RenewalStatus = "under_review"
	RenewalDecisionMade RenewalStatus = "decision_made"
)

// ContractRenewal records a renewal decision for a contract
type ContractRenewal struct {
	RenewalID        int64           `json:"renewal_id" gorm:"column:renewal_id;primaryKey;autoIncrement"`
	ContractID       int64           `json:"contract_id" gorm:"column:contract_id;not null;index"`
	RenewalDecision  RenewalDecision `json:"renewal_decision" gorm:"column:renewal_decision;type:nvarchar(20);not null"`
	Status           RenewalStatus   `json:"status" gorm:"column:status;type:nvarchar(20);not null"`
	NotificationDate *time.Time      `json:"notification_date,omitempty" gorm:"column:notification_date"`
	RenewalDate      time.Time       `json:"renewal_date" gorm:"column:renewal_date;not null"`
	DecisionDueDate  *time.Time      `json:"decision_due_date,omitempty" gorm:"column:decision_due_date"`
	DecisionDate     *time.Time      `json:"decision_date,omitempty" gorm:"column:decision_date"`
	DecidedBy        string          `json:"decided_by,omitempty" gorm:"column:decided_by;type:nvarchar(150)"`
	NewContractID    *int64          `json:"new_contract_id,omitempty" gorm:"column:new_contract_id"`
	Comments         string          `json:"comments,omitempty" gorm:"column:comments"`
	CreatedBy        string          `json:"created_by" gorm:"column:created_by;type:nvarchar(150)"`
	CreatedAt        time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (ContractRenewal) TableName() string {
	return "contract_renewals"
}

// ApprovalObjectType is the kind of entity an approval targets
type ApprovalObjectType string

const (
	ObjectContractCreation    ApprovalObjectType = "CONTRACT_CREATION"
	ObjectContractAmendment   ApprovalObjectType = "CONTRACT_AMENDMENT"
	ObjectSubcontractCreation ApprovalObjectType = "SUBCONTRACT_CREATION"
	ObjectContractRenewal     ApprovalObjectType = "CONTRACT_RENEWAL"
	ObjectSLACreation         ApprovalObjectType = "SLA_CREATION"
	ObjectSLAAmendment        ApprovalObjectType = "SLA_AMENDMENT"
	ObjectSLARenewal          ApprovalObjectType = "SLA_RENEWAL"
	ObjectSLATermination      ApprovalObjectType = "SLA_TERMINATION"
)

// IsSLA reports whether the object type targets an SLA
func (t ApprovalObjectType) IsSLA() bool {
	switch t {
	case ObjectSLACreation, ObjectSLAAmendment, ObjectSLARenewal, ObjectSLATermination:
		return true
	}
	return false
}

// ApprovalStatus is the state of an approval assignment
type ApprovalStatus string

const (
	ApprovalAssigned   ApprovalStatus = "ASSIGNED"
	ApprovalInProgress ApprovalStatus = "IN_PROGRESS"
	ApprovalCommented  ApprovalStatus = "COMMENTED"
	ApprovalApproved   ApprovalStatus = "APPROVED"
	ApprovalRejected   ApprovalStatus = "REJECTED"
	ApprovalSkipped    ApprovalStatus = "SKIPPED"
	ApprovalExpired    ApprovalStatus = "EXPIRED"
	ApprovalCancelled  ApprovalStatus = "CANCELLED"
)

// Approval is one reviewer assignment on a contract or SLA object
type Approval struct {
	ApprovalID   int64              `json:"approval_id" gorm:"column:approval_id;primaryKey;autoIncrement"`
	ObjectType   ApprovalObjectType `json:"object_type" gorm:"column:object_type;type:nvarchar(40);not null;index:ix_approvals_object,priority:1"`
	ObjectID     int64              `json:"object_id" gorm:"column:object_id;not null;index:ix_approvals_object,priority:2"`
	WorkflowID   string             `json:"workflow_id" gorm:"column:workflow_id;type:nvarchar(100)"`
	WorkflowName string             `json:"workflow_name" gorm:"column:workflow_name;type:nvarchar(200)"`
	AssignerID   string             `json:"assigner_id" gorm:"column:assigner_id;type:nvarchar(150);not null;index"`
	AssignerName string             `json:"assigner_name" gorm:"column:assigner_name;type:nvarchar(200)"`
	AssigneeID   string             `json:"assignee_id" gorm:"column:assignee_id;type:nvarchar(150);not null;index"`
	AssigneeName string             `json:"assignee_name" gorm:"column:assignee_name;type:nvarchar(200)"`
	AssignedDate time.Time          `json:"assigned_date" gorm:"column:assigned_date;not null"`
	DueDate      time.Time          `json:"due_date" gorm:"column:due_date;not null;index"`
	Status       ApprovalStatus     `json:"status" gorm:"column:status;type:nvarchar(20);not null;index"`
	CommentText  string             `json:"comment_text,omitempty" gorm:"column:comment_text"`
	ApprovedDate *time.Time         `json:"approved_date,omitempty" gorm:"column:approved_date"`
	CreatedAt    time.Time          `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	RowVersion   int64              `json:"row_version" gorm:"column:row_version;not null;default:1"`
}

// TableName especifica o nome da tabela no banco
func (Approval) TableName() string {
	return "approvals"
}

// SLAStatus is the state of a service level agreement
type SLAStatus string

const (
	SLAPending  SLAStatus = "PENDING"
	SLAActive   SLAStatus = "ACTIVE"
	SLARejected SLAStatus = "REJECTED"
	SLAExpired  SLAStatus = "EXPIRED"
)

// SLA is a service level agreement attached to a vendor and optionally a contract
type SLA struct {
	SLAID         int64      `json:"sla_id" gorm:"column:sla_id;primaryKey;autoIncrement"`
	SLAName       string     `json:"sla_name" gorm:"column:sla_name;type:nvarchar(300);not null"`
	VendorID      *int64     `json:"vendor_id,omitempty" gorm:"column:vendor_id;index"`
	ContractID    *int64     `json:"contract_id,omitempty" gorm:"column:contract_id;index"`
	ServiceType   string     `json:"service_type" gorm:"column:service_type;type:nvarchar(100)"`
	Status        SLAStatus  `json:"status" gorm:"column:status;type:nvarchar(20);not null"`
	EffectiveDate *time.Time `json:"effective_date,omitempty" gorm:"column:effective_date"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty" gorm:"column:expiry_date"`
	CreatedAt     time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (SLA) TableName() string {
	return "slas"
}
