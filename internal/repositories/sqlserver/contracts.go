package sqlserver

import (
	"errors"
	"strings"
	"time"

	"tprmgrc/internal/models/entities"

	"gorm.io/gorm"
)

// ContractFilter narrows ListContracts
type ContractFilter struct {
	Status          []entities.ContractStatus
	Kind            entities.ContractKind
	VendorID        *int64
	MainContractID  *int64
	ParentID        *int64
	IncludeArchived bool
	OnlyArchived    bool
	Search          string
}

// contractOrderColumns whitelists ordering keys
var contractOrderColumns = map[string]string{
	"contract_id":     "contract_id",
	"contract_number": "contract_number",
	"created_at":      "created_at",
	"updated_at":      "updated_at",
	"end_date":        "end_date",
	"status":          "status",
	"version_number":  "version_number",
}

// CreateContract inserts a contract row
func (t *Tx) CreateContract(c *entities.Contract) error {
	if c.RowVersion == 0 {
		c.RowVersion = 1
	}
	return translate(t.db.Create(c).Error, "contract_number")
}

// GetContract loads a contract by id, archived rows included
func (t *Tx) GetContract(id int64) (*entities.Contract, error) {
	var c entities.Contract
	if err := t.db.Where("contract_id = ?", id).Take(&c).Error; err != nil {
		return nil, translate(err, "")
	}
	return &c, nil
}

// GetContractByNumber loads a contract by its business number
func (t *Tx) GetContractByNumber(number string) (*entities.Contract, error) {
	var c entities.Contract
	if err := t.db.Where("contract_number = ?", number).Take(&c).Error; err != nil {
		return nil, translate(err, "")
	}
	return &c, nil
}

// ContractNumberExists reports whether a contract already uses number
func (t *Tx) ContractNumberExists(number string) (bool, error) {
	var n int64
	err := t.db.Model(&entities.Contract{}).Where("contract_number = ?", number).Count(&n).Error
	return n > 0, err
}

// ContractExists reports whether a contract row exists
func (t *Tx) ContractExists(id int64) (bool, error) {
	var n int64
	err := t.db.Model(&entities.Contract{}).Where("contract_id = ?", id).Count(&n).Error
	return n > 0, err
}

// UpdateContract writes every column of c guarded by row_version.
// On success c.RowVersion holds the new version.
func (t *Tx) UpdateContract(c *entities.Contract) error {
	expected := c.RowVersion
	c.RowVersion = expected + 1

	res := t.db.Model(c).
		Where("row_version = ?", expected).
		Select("*").
		Omit("contract_id", "created_at").
		Updates(c)
	if res.Error != nil {
		c.RowVersion = expected
		return translate(res.Error, "contract_number")
	}
	if res.RowsAffected == 0 {
		c.RowVersion = expected
		exists, err := t.ContractExists(c.ContractID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrOptimisticLock
	}
	return nil
}

// ListContracts returns a page of contracts and the total count
func (t *Tx) ListContracts(f ContractFilter, page, pageSize int, orderBy string, desc bool) ([]entities.Contract, int64, error) {
	q := t.db.Model(&entities.Contract{})

	switch {
	case f.OnlyArchived:
		q = q.Where("is_archived = ?", true)
	case !f.IncludeArchived:
		q = q.Where("is_archived = ?", false)
	}
	if len(f.Status) > 0 {
		q = q.Where("status IN ?", f.Status)
	}
	if f.Kind != "" {
		q = q.Where("contract_kind = ?", f.Kind)
	}
	if f.VendorID != nil {
		q = q.Where("vendor_id = ?", *f.VendorID)
	}
	if f.MainContractID != nil {
		q = q.Where("(main_contract_id = ? OR contract_id = ?)", *f.MainContractID, *f.MainContractID)
	}
	if f.ParentID != nil {
		q = q.Where("parent_contract_id = ?", *f.ParentID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		q = q.Where("(contract_number LIKE ? OR contract_title LIKE ?)", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := contractOrderColumns[orderBy]
	if !ok {
		column = "contract_id"
	}
	if desc {
		column += " DESC"
	}

	offset, limit := paginate(page, pageSize)
	var out []entities.Contract
	err := q.Order(column).Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// SubcontractsOf lists non-archived subcontracts of a parent
func (t *Tx) SubcontractsOf(parentID int64) ([]entities.Contract, error) {
	var out []entities.Contract
	err := t.db.Where("parent_contract_id = ? AND contract_kind = ? AND is_archived = ?", parentID, entities.KindSubcontract, false).
		Order("contract_id").
		Find(&out).Error
	return out, err
}

// AmendmentsOf lists the amendment rows created from a parent
func (t *Tx) AmendmentsOf(parentID int64) ([]entities.Contract, error) {
	var out []entities.Contract
	err := t.db.Where("parent_contract_id = ? AND contract_kind = ?", parentID, entities.KindAmendment).
		Order("contract_id").
		Find(&out).Error
	return out, err
}

// VersionsOf lists every row of a chain, root first
func (t *Tx) VersionsOf(mainID int64) ([]entities.Contract, error) {
	var out []entities.Contract
	err := t.db.Where("main_contract_id = ? OR contract_id = ?", mainID, mainID).
		Order("contract_id").
		Find(&out).Error
	return out, err
}

// LapsedContracts lists live contracts whose end date is before day
func (t *Tx) LapsedContracts(day time.Time, limit int) ([]entities.Contract, error) {
	var out []entities.Contract
	err := t.db.Where("end_date < ? AND status NOT IN ? AND is_archived = ?",
		day, []entities.ContractStatus{entities.StatusExpired, entities.StatusTerminated}, false).
		Order("contract_id").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SetContractStatus moves a contract to status/stage without a version check.
// Used by side-effect handlers that hold no prior read.
func (t *Tx) SetContractStatus(id int64, from []entities.ContractStatus, status entities.ContractStatus, stage entities.WorkflowStage) (bool, error) {
	q := t.db.Model(&entities.Contract{}).Where("contract_id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Updates(map[string]interface{}{
		"status":         status,
		"workflow_stage": stage,
		"row_version":    gorm.Expr("row_version + 1"),
		"updated_at":     time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsNotFound reports whether err is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
