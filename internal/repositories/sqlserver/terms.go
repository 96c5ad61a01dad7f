package sqlserver

import (
	"time"

	"tprmgrc/internal/models/entities"
)

// ListTerms lists the terms of a contract
func (t *Tx) ListTerms(contractID int64) ([]entities.ContractTerm, error) {
	var out []entities.ContractTerm
	err := t.db.Where("contract_id = ?", contractID).Order("id").Find(&out).Error
	return out, err
}

// GetTerm loads a term scoped by its contract
func (t *Tx) GetTerm(contractID int64, termID string) (*entities.ContractTerm, error) {
	var out entities.ContractTerm
	if err := t.db.Where("contract_id = ? AND term_id = ?", contractID, termID).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// ExistsTermID reports whether any contract already uses termID
func (t *Tx) ExistsTermID(termID string) (bool, error) {
	var n int64
	err := t.db.Model(&entities.ContractTerm{}).Where("term_id = ?", termID).Count(&n).Error
	return n > 0, err
}

// CreateTerm inserts a term
func (t *Tx) CreateTerm(term *entities.ContractTerm) error {
	return translate(t.db.Create(term).Error, "term_id")
}

// UpdateTerm writes every mutable column of a term
func (t *Tx) UpdateTerm(term *entities.ContractTerm) error {
	res := t.db.Model(term).Select("*").Omit("id", "term_id", "contract_id", "created_at").Updates(term)
	if res.Error != nil {
		return translate(res.Error, "term_id")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTerm removes one term of a contract
func (t *Tx) DeleteTerm(contractID int64, termID string) error {
	res := t.db.Where("contract_id = ? AND term_id = ?", contractID, termID).Delete(&entities.ContractTerm{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllTerms removes every term of a contract and returns how many went
func (t *Tx) DeleteAllTerms(contractID int64) (int64, error) {
	res := t.db.Where("contract_id = ?", contractID).Delete(&entities.ContractTerm{})
	return res.RowsAffected, res.Error
}

// TermsCreatedSince lists terms inserted at or after since
func (t *Tx) TermsCreatedSince(since time.Time) ([]entities.ContractTerm, error) {
	var out []entities.ContractTerm
	err := t.db.Where("created_at >= ?", since).Order("id").Find(&out).Error
	return out, err
}

// ListClauses lists the clauses of a contract
func (t *Tx) ListClauses(contractID int64) ([]entities.ContractClause, error) {
	var out []entities.ContractClause
	err := t.db.Where("contract_id = ?", contractID).Order("id").Find(&out).Error
	return out, err
}

// GetClause loads a clause scoped by its contract
func (t *Tx) GetClause(contractID int64, clauseID string) (*entities.ContractClause, error) {
	var out entities.ContractClause
	if err := t.db.Where("contract_id = ? AND clause_id = ?", contractID, clauseID).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// ExistsClauseID reports whether any contract already uses clauseID
func (t *Tx) ExistsClauseID(clauseID string) (bool, error) {
	var n int64
	err := t.db.Model(&entities.ContractClause{}).Where("clause_id = ?", clauseID).Count(&n).Error
	return n > 0, err
}

// CreateClause inserts a clause
func (t *Tx) CreateClause(clause *entities.ContractClause) error {
	return translate(t.db.Create(clause).Error, "clause_id")
}

// UpdateClause writes every mutable column of a clause
func (t *Tx) UpdateClause(clause *entities.ContractClause) error {
	res := t.db.Model(clause).Select("*").Omit("id", "clause_id", "contract_id", "created_at").Updates(clause)
	if res.Error != nil {
		return translate(res.Error, "clause_id")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClause removes one clause of a contract
func (t *Tx) DeleteClause(contractID int64, clauseID string) error {
	res := t.db.Where("contract_id = ? AND clause_id = ?", contractID, clauseID).Delete(&entities.ContractClause{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllClauses removes every clause of a contract
func (t *Tx) DeleteAllClauses(contractID int64) (int64, error) {
	res := t.db.Where("contract_id = ?", contractID).Delete(&entities.ContractClause{})
	return res.RowsAffected, res.Error
}

// CreateQuestionnaireLink records that a questionnaire references termID
func (t *Tx) CreateQuestionnaireLink(link *entities.TermQuestionnaire) error {
	return translate(t.db.Create(link).Error, "")
}

// ListQuestionnaireLinks lists the questionnaire rows pointing at termID
func (t *Tx) ListQuestionnaireLinks(termID string) ([]entities.TermQuestionnaire, error) {
	var out []entities.TermQuestionnaire
	err := t.db.Where("term_id = ?", termID).Order("id").Find(&out).Error
	return out, err
}

// MigrateQuestionnaireTermID repoints questionnaire rows created at or
// after since from one term_id to another
func (t *Tx) MigrateQuestionnaireTermID(from, to string, since time.Time) (int64, error) {
	res := t.db.Model(&entities.TermQuestionnaire{}).
		Where("term_id = ? AND created_at >= ?", from, since).
		Updates(map[string]interface{}{"term_id": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// OrphanQuestionnaireLinks lists questionnaire rows created since whose
// term_id matches no contract term
func (t *Tx) OrphanQuestionnaireLinks(since time.Time) ([]entities.TermQuestionnaire, error) {
	var out []entities.TermQuestionnaire
	err := t.db.Where("created_at >= ?", since).
		Where("term_id NOT IN (?)", t.db.Model(&entities.ContractTerm{}).Select("term_id")).
		Order("id").
		Find(&out).Error
	return out, err
}
