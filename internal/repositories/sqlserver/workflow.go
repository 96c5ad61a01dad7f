package sqlserver

import (
	"time"

	"tprmgrc/internal/models/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateAmendment inserts the companion record of an amendment row
func (t *Tx) CreateAmendment(a *entities.ContractAmendment) error {
	return translate(t.db.Create(a).Error, "amendment_number")
}

// GetAmendment loads an amendment record by id
func (t *Tx) GetAmendment(id int64) (*entities.ContractAmendment, error) {
	var out entities.ContractAmendment
	if err := t.db.Where("amendment_id = ?", id).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// GetAmendmentByContract loads the amendment record of an AMENDMENT row
func (t *Tx) GetAmendmentByContract(contractID int64) (*entities.ContractAmendment, error) {
	var out entities.ContractAmendment
	if err := t.db.Where("contract_id = ?", contractID).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// ListAmendments lists the amendment records of a chain
func (t *Tx) ListAmendments(mainID int64) ([]entities.ContractAmendment, error) {
	var out []entities.ContractAmendment
	err := t.db.Where("main_contract_id = ?", mainID).Order("amendment_id").Find(&out).Error
	return out, err
}

// AmendmentNumberExists reports whether the chain already uses number
func (t *Tx) AmendmentNumberExists(mainID int64, number string) (bool, error) {
	var n int64
	err := t.db.Model(&entities.ContractAmendment{}).
		Where("main_contract_id = ? AND amendment_number = ?", mainID, number).
		Count(&n).Error
	return n > 0, err
}

// CountAmendments counts the amendment records of a chain
func (t *Tx) CountAmendments(mainID int64) (int64, error) {
	var n int64
	err := t.db.Model(&entities.ContractAmendment{}).Where("main_contract_id = ?", mainID).Count(&n).Error
	return n, err
}

// UpdateAmendment writes every mutable column of an amendment record
func (t *Tx) UpdateAmendment(a *entities.ContractAmendment) error {
	res := t.db.Model(a).Select("*").Omit("amendment_id", "contract_id", "main_contract_id", "created_at").Updates(a)
	if res.Error != nil {
		return translate(res.Error, "amendment_number")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateRenewal inserts a renewal
func (t *Tx) CreateRenewal(r *entities.ContractRenewal) error {
	return translate(t.db.Create(r).Error, "new_contract_id")
}

// GetRenewal loads a renewal by id
func (t *Tx) GetRenewal(id int64) (*entities.ContractRenewal, error) {
	var out entities.ContractRenewal
	if err := t.db.Where("renewal_id = ?", id).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// ListRenewals lists the renewals of a contract, newest first
func (t *Tx) ListRenewals(contractID int64) ([]entities.ContractRenewal, error) {
	var out []entities.ContractRenewal
	err := t.db.Where("contract_id = ?", contractID).Order("renewal_id DESC").Find(&out).Error
	return out, err
}

// UpdateRenewal writes every mutable column of a renewal
func (t *Tx) UpdateRenewal(r *entities.ContractRenewal) error {
	res := t.db.Model(r).Select("*").Omit("renewal_id", "contract_id", "created_at").Updates(r)
	if res.Error != nil {
		return translate(res.Error, "new_contract_id")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRenewal removes a renewal
func (t *Tx) DeleteRenewal(id int64) error {
	res := t.db.Where("renewal_id = ?", id).Delete(&entities.ContractRenewal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApprovalFilter narrows approval listings
type ApprovalFilter struct {
	AssigneeID string
	AssignerID string
	ObjectType entities.ApprovalObjectType
	ObjectID   *int64
	Status     []entities.ApprovalStatus
	WorkflowID string
	DueBefore  *time.Time
	OnlySLA    bool
	OnlyNonSLA bool
}

func (f ApprovalFilter) apply(q *gorm.DB) *gorm.DB {
	if f.AssigneeID != "" {
		q = q.Where("assignee_id = ?", f.AssigneeID)
	}
	if f.AssignerID != "" {
		q = q.Where("assigner_id = ?", f.AssignerID)
	}
	if f.ObjectType != "" {
		q = q.Where("object_type = ?", f.ObjectType)
	}
	if f.ObjectID != nil {
		q = q.Where("object_id = ?", *f.ObjectID)
	}
	if len(f.Status) > 0 {
		q = q.Where("status IN ?", f.Status)
	}
	if f.WorkflowID != "" {
		q = q.Where("workflow_id = ?", f.WorkflowID)
	}
	if f.DueBefore != nil {
		q = q.Where("due_date < ?", *f.DueBefore)
	}
	slaTypes := []entities.ApprovalObjectType{
		entities.ObjectSLACreation, entities.ObjectSLAAmendment,
		entities.ObjectSLARenewal, entities.ObjectSLATermination,
	}
	if f.OnlySLA {
		q = q.Where("object_type IN ?", slaTypes)
	}
	if f.OnlyNonSLA {
		q = q.Where("object_type NOT IN ?", slaTypes)
	}
	return q
}

// CreateApproval inserts an approval
func (t *Tx) CreateApproval(a *entities.Approval) error {
	if a.RowVersion == 0 {
		a.RowVersion = 1
	}
	return translate(t.db.Create(a).Error, "")
}

// GetApproval loads an approval by id
func (t *Tx) GetApproval(id int64) (*entities.Approval, error) {
	var out entities.Approval
	if err := t.db.Where("approval_id = ?", id).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// UpdateApproval writes an approval guarded by row_version
func (t *Tx) UpdateApproval(a *entities.Approval) error {
	expected := a.RowVersion
	a.RowVersion = expected + 1

	res := t.db.Model(a).
		Where("row_version = ?", expected).
		Select("*").
		Omit("approval_id", "created_at").
		Updates(a)
	if res.Error != nil {
		a.RowVersion = expected
		return translate(res.Error, "")
	}
	if res.RowsAffected == 0 {
		a.RowVersion = expected
		var n int64
		if err := t.db.Model(&entities.Approval{}).Where("approval_id = ?", a.ApprovalID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrOptimisticLock
	}
	return nil
}

// ListApprovals returns a page of approvals, due soonest first
func (t *Tx) ListApprovals(f ApprovalFilter, page, pageSize int) ([]entities.Approval, int64, error) {
	q := f.apply(t.db.Model(&entities.Approval{}))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	var out []entities.Approval
	err := q.Order("due_date").Order("approval_id").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// ApprovalStatusCount is one row of ApprovalStats
type ApprovalStatusCount struct {
	Status entities.ApprovalStatus `gorm:"column:status"`
	Total  int64                   `gorm:"column:total"`
}

// ApprovalStats counts approvals per status
func (t *Tx) ApprovalStats(f ApprovalFilter) ([]ApprovalStatusCount, error) {
	var out []ApprovalStatusCount
	err := f.apply(t.db.Model(&entities.Approval{})).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&out).Error
	return out, err
}

// OverdueApprovals lists open approvals whose due date passed
func (t *Tx) OverdueApprovals(now time.Time, limit int) ([]entities.Approval, error) {
	var out []entities.Approval
	q := t.db.Where("status IN ? AND due_date < ?",
		[]entities.ApprovalStatus{entities.ApprovalAssigned, entities.ApprovalInProgress}, now).
		Order("due_date")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CreateSLA inserts an SLA
func (t *Tx) CreateSLA(s *entities.SLA) error {
	return translate(t.db.Create(s).Error, "")
}

// GetSLA loads an SLA by id
func (t *Tx) GetSLA(id int64) (*entities.SLA, error) {
	var out entities.SLA
	if err := t.db.Where("sla_id = ?", id).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// SLAExists reports whether an SLA exists
func (t *Tx) SLAExists(id int64) (bool, error) {
	var n int64
	err := t.db.Model(&entities.SLA{}).Where("sla_id = ?", id).Count(&n).Error
	return n > 0, err
}

// SetSLAStatus moves an SLA to status and reports whether a row changed
func (t *Tx) SetSLAStatus(id int64, status entities.SLAStatus) (bool, error) {
	res := t.db.Model(&entities.SLA{}).Where("sla_id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

// UpsertRetention writes the timeline record of an entity, replacing any
// previous stamp
func (t *Tx) UpsertRetention(r *entities.RetentionTimeline) error {
	return t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"page_key", "retention_years", "retention_expiry", "stamped_at"}),
	}).Create(r).Error
}

// GetRetention loads the timeline record of an entity
func (t *Tx) GetRetention(entityType, entityID string) (*entities.RetentionTimeline, error) {
	var out entities.RetentionTimeline
	if err := t.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}
