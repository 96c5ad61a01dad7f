package entities

import "time"

// Vendor is a third party the organisation contracts with
type Vendor struct {
	VendorID     int64     `json:"vendor_id" gorm:"column:vendor_id;primaryKey;autoIncrement"`
	VendorCode   string    `json:"vendor_code" gorm:"column:vendor_code;type:nvarchar(100);not null;uniqueIndex:ux_vendors_code"`
	LegalName    string    `json:"legal_name" gorm:"column:legal_name;type:nvarchar(300);not null"`
	BusinessType string    `json:"business_type" gorm:"column:business_type;type:nvarchar(100)"`
	Country      string    `json:"country" gorm:"column:country;type:nvarchar(100)"`
	Website      string    `json:"website" gorm:"column:website;type:nvarchar(300)"`
	RiskLevel    string    `json:"risk_level" gorm:"column:risk_level;type:nvarchar(20)"`
	Status       string    `json:"status" gorm:"column:status;type:nvarchar(20);not null;default:ACTIVE"`
	CreatedBy    string    `json:"created_by" gorm:"column:created_by;type:nvarchar(150)"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (Vendor) TableName() string {
	return "vendors"
}

// VendorContact is a person at a vendor; at most one per vendor is primary
type VendorContact struct {
	ContactID   int64     `json:"contact_id" gorm:"column:contact_id;primaryKey;autoIncrement"`
	VendorID    int64     `json:"vendor_id" gorm:"column:vendor_id;not null;index"`
	FirstName   string    `json:"first_name" gorm:"column:first_name;type:nvarchar(150)"`
	LastName    string    `json:"last_name" gorm:"column:last_name;type:nvarchar(150)"`
	Email       string    `json:"email" gorm:"column:email;type:nvarchar(255);not null"`
	Phone       string    `json:"phone" gorm:"column:phone;type:nvarchar(50)"`
	Designation string    `json:"designation" gorm:"column:designation;type:nvarchar(150)"`
	IsPrimary   bool      `json:"is_primary" gorm:"column:is_primary;not null;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (VendorContact) TableName() string {
	return "vendor_contacts"
}

// RFP is a request for proposal sent to one or more vendors
type RFP struct {
	RFPID        int64      `json:"rfp_id" gorm:"column:rfp_id;primaryKey;autoIncrement"`
	RFPNumber    string     `json:"rfp_number" gorm:"column:rfp_number;type:nvarchar(100);not null;uniqueIndex:ux_rfps_number"`
	Title        string     `json:"title" gorm:"column:title;type:nvarchar(500);not null"`
	Description  string     `json:"description" gorm:"column:description"`
	Status       string     `json:"status" gorm:"column:status;type:nvarchar(20);not null;default:DRAFT"`
	SubmissionBy *time.Time `json:"submission_deadline,omitempty" gorm:"column:submission_deadline"`
	CreatedBy    string     `json:"created_by" gorm:"column:created_by;type:nvarchar(150)"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (RFP) TableName() string {
	return "rfps"
}

// InvitationStatus tracks an invitation from creation to response
type InvitationStatus string

const (
	InvitationCreated      InvitationStatus = "CREATED"
	InvitationSent         InvitationStatus = "SENT"
	InvitationOpened       InvitationStatus = "OPENED"
	InvitationAcknowledged InvitationStatus = "ACKNOWLEDGED"
	InvitationDeclined     InvitationStatus = "DECLINED"
	InvitationSubmitted    InvitationStatus = "SUBMITTED"
	InvitationCancelled    InvitationStatus = "CANCELLED"
)

// VendorInvitation invites a vendor, or an open recipient, to answer an RFP
type VendorInvitation struct {
	InvitationID      int64            `json:"invitation_id" gorm:"column:invitation_id;primaryKey;autoIncrement"`
	RFPID             int64            `json:"rfp_id" gorm:"column:rfp_id;not null;index"`
	VendorID          *int64           `json:"vendor_id,omitempty" gorm:"column:vendor_id;index"`
	VendorEmail       string           `json:"vendor_email" gorm:"column:vendor_email;type:nvarchar(255)"`
	VendorName        string           `json:"vendor_name" gorm:"column:vendor_name;type:nvarchar(300)"`
	ContactName       string           `json:"contact_name" gorm:"column:contact_name;type:nvarchar(300)"`
	UniqueToken       string           `json:"unique_token" gorm:"column:unique_token;type:nvarchar(150);not null;uniqueIndex:ux_vendor_invitations_token"`
	InvitationURL     string           `json:"invitation_url" gorm:"column:invitation_url;type:nvarchar(2000)"`
	AcknowledgmentURL string           `json:"acknowledgment_url" gorm:"column:acknowledgment_url;type:nvarchar(2000)"`
	DeclineURL        string           `json:"decline_url" gorm:"column:decline_url;type:nvarchar(2000)"`
	InvitationStatus  InvitationStatus `json:"invitation_status" gorm:"column:invitation_status;type:nvarchar(20);not null"`
	UTMSource         string           `json:"utm_source" gorm:"column:utm_source;type:nvarchar(100)"`
	UTMMedium         string           `json:"utm_medium" gorm:"column:utm_medium;type:nvarchar(100)"`
	UTMCampaign       string           `json:"utm_campaign" gorm:"column:utm_campaign;type:nvarchar(200)"`
	SentAt            *time.Time       `json:"sent_at,omitempty" gorm:"column:sent_at"`
	OpenedAt          *time.Time       `json:"opened_at,omitempty" gorm:"column:opened_at"`
	RespondedAt       *time.Time       `json:"responded_at,omitempty" gorm:"column:responded_at"`
	CreatedBy         string           `json:"created_by" gorm:"column:created_by;type:nvarchar(150)"`
	CreatedAt         time.Time        `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (VendorInvitation) TableName() string {
	return "vendor_invitations"
}

// RetentionTimeline stores when a row becomes eligible for disposal
type RetentionTimeline struct {
	ID              int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	EntityType      string    `json:"entity_type" gorm:"column:entity_type;type:nvarchar(40);not null;uniqueIndex:ux_retention_entity,priority:1"`
	EntityID        string    `json:"entity_id" gorm:"column:entity_id;type:nvarchar(150);not null;uniqueIndex:ux_retention_entity,priority:2"`
	PageKey         string    `json:"page_key" gorm:"column:page_key;type:nvarchar(60);not null"`
	RetentionYears  int       `json:"retention_years" gorm:"column:retention_years;not null"`
	RetentionExpiry time.Time `json:"retention_expiry" gorm:"column:retention_expiry;not null"`
	StampedAt       time.Time `json:"stamped_at" gorm:"column:stamped_at;not null"`
}

// TableName especifica o nome da tabela no banco
func (RetentionTimeline) TableName() string {
	return "retention_timelines"
}

// TermQuestionnaire links a contract term to an external questionnaire by term_id
type TermQuestionnaire struct {
	ID              int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TermID          string    `json:"term_id" gorm:"column:term_id;type:nvarchar(150);not null;index"`
	QuestionnaireID string    `json:"questionnaire_id" gorm:"column:questionnaire_id;type:nvarchar(150);not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName especifica o nome da tabela no banco
func (TermQuestionnaire) TableName() string {
	return "term_questionnaires"
}
