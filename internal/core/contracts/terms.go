package contracts

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/idgen"
	"tprmgrc/internal/core/validators"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
)

// createAttempts bounds how often CreateTerm reruns its transaction when a
// concurrent writer takes the adopted term_id between check and commit
const createAttempts = 3

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// liveContract loads a contract that may own new children
func liveContract(tx *sqlserver.Tx, id int64) (*e.Contract, error) {
	c, err := tx.GetContract(id)
	if err != nil {
		return nil, err
	}
	if c.IsArchived {
		return nil, apperrors.NotFound("contract", id)
	}
	return c, nil
}

// ListTerms lists the terms of a contract
func (en *Engine) ListTerms(ctx context.Context, contractID int64) ([]e.ContractTerm, error) {
	r := en.store.Reader(ctx)
	if ok, err := r.ContractExists(contractID); err != nil || !ok {
		if err == nil {
			err = sqlserver.ErrNotFound
		}
		return nil, apperrors.FromStore(err, "contract", contractID)
	}
	terms, err := r.ListTerms(contractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}
	if terms == nil {
		terms = []e.ContractTerm{}
	}
	return terms, nil
}

// TermResult is a created term plus the id the caller proposed when it had
// to be replaced
type TermResult struct {
	Term           *e.ContractTerm `json:"term"`
	OriginalTermID string          `json:"original_term_id,omitempty"`
	LinksMigrated  int64           `json:"links_migrated"`
}

// CreateTerm inserts a term under a live contract. A proposed term_id that
// is already taken is replaced by a generated one and questionnaire links
// recently written against the proposal are repointed in the same
// transaction.
func (en *Engine) CreateTerm(ctx context.Context, actor string, contractID int64, in TermInput) (*TermResult, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	var res TermResult
	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			en.sleep(en.retryBackoff * (1 << uint(attempt-1)))
		}
		res, err = en.createTerm(ctx, actor, contractID, in)
		var unique *sqlserver.UniqueConflictError
		if err == nil || !(errors.As(err, &unique) || errors.Is(err, idgen.ErrExhausted)) {
			break
		}
		en.log.Warn("term insert lost an id race, retrying", map[string]interface{}{
			"contract_id": contractID,
			"term_id":     in.TermID,
			"attempt":     attempt + 1,
		})
	}
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}

	ev := events.NewKeyed(events.TermCreated, events.EntityTerm, res.Term.TermID, actor).
		WithContract(contractID).
		WithSnapshots(nil, res.Term).
		WithMeta(events.MetaPageKey, PageTerms)
	if res.OriginalTermID != "" {
		ev = ev.WithMeta(events.MetaOriginalTermID, res.OriginalTermID)
	}
	en.bus.Publish(ctx, ev)
	return &res, nil
}

func (en *Engine) createTerm(ctx context.Context, actor string, contractID int64, in TermInput) (TermResult, error) {
	var res TermResult
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := liveContract(tx, contractID)
		if err != nil {
			return err
		}
		term := in.Build(c, actor)

		adopted, err := en.graph.InsertTermTracked(tx, term, strings.TrimSpace(in.TermID))
		if err != nil {
			return err
		}
		res = TermResult{Term: term}
		if adopted.Substituted {
			res.OriginalTermID = adopted.Original
			since := en.now().Add(-ReconcileWindow)
			n, err := tx.MigrateQuestionnaireTermID(adopted.Original, adopted.ID, since)
			if err != nil {
				return err
			}
			res.LinksMigrated = n
		}

		for _, qid := range in.QuestionnaireIDs {
			qid = strings.TrimSpace(qid)
			if qid == "" {
				continue
			}
			link := &e.TermQuestionnaire{TermID: term.TermID, QuestionnaireID: qid}
			if err := tx.CreateQuestionnaireLink(link); err != nil {
				return err
			}
		}
		return nil
	})
	return res, err
}

// UpdateTerm replaces the mutable fields of a term. The term_id stays.
func (en *Engine) UpdateTerm(ctx context.Context, actor string, contractID int64, termID string, in TermInput) (*e.ContractTerm, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	var before, after e.ContractTerm
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := liveContract(tx, contractID)
		if err != nil {
			return err
		}
		t, err := tx.GetTerm(contractID, termID)
		if err != nil {
			return err
		}
		before = *t

		next := in.Build(c, actor)
		next.ID = t.ID
		next.TermID = t.TermID
		next.CreatedBy = t.CreatedBy
		next.CreatedAt = t.CreatedAt
		if err := tx.UpdateTerm(next); err != nil {
			return err
		}
		after = *next
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "term", termID)
	}

	en.bus.Publish(ctx, events.NewKeyed(events.TermUpdated, events.EntityTerm, termID, actor).
		WithContract(contractID).
		WithSnapshots(&before, &after).
		WithMeta(events.MetaPageKey, PageTerms))
	return &after, nil
}

// DeleteTerm removes one term
func (en *Engine) DeleteTerm(ctx context.Context, actor string, contractID int64, termID string) error {
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		if _, err := liveContract(tx, contractID); err != nil {
			return err
		}
		return tx.DeleteTerm(contractID, termID)
	})
	if err != nil {
		return apperrors.FromStore(err, "term", termID)
	}

	en.bus.Publish(ctx, events.NewKeyed(events.TermDeleted, events.EntityTerm, termID, actor).
		WithContract(contractID).
		WithMeta(events.MetaPageKey, PageTerms))
	return nil
}

// DeleteAllTerms removes every term of a contract and returns how many
func (en *Engine) DeleteAllTerms(ctx context.Context, actor string, contractID int64) (int64, error) {
	var n int64
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		if _, err := liveContract(tx, contractID); err != nil {
			return err
		}
		var err error
		n, err = tx.DeleteAllTerms(contractID)
		return err
	})
	if err != nil {
		return 0, apperrors.FromStore(err, "contract", contractID)
	}

	if n > 0 {
		en.bus.Publish(ctx, events.New(events.TermDeleted, events.EntityContract, contractID, actor).
			WithContract(contractID).
			WithMeta(events.MetaPageKey, PageTerms).
			WithMeta("deleted", strconv.FormatInt(n, 10)))
	}
	return n, nil
}

// ListClauses lists the clauses of a contract
func (en *Engine) ListClauses(ctx context.Context, contractID int64) ([]e.ContractClause, error) {
	r := en.store.Reader(ctx)
	if ok, err := r.ContractExists(contractID); err != nil || !ok {
		if err == nil {
			err = sqlserver.ErrNotFound
		}
		return nil, apperrors.FromStore(err, "contract", contractID)
	}
	clauses, err := r.ListClauses(contractID)
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}
	if clauses == nil {
		clauses = []e.ContractClause{}
	}
	return clauses, nil
}

// CreateClause inserts a clause under a live contract
func (en *Engine) CreateClause(ctx context.Context, actor string, contractID int64, in ClauseInput) (*e.ContractClause, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	var clause *e.ContractClause
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := liveContract(tx, contractID)
		if err != nil {
			return err
		}
		clause = in.Build(c, actor)
		return en.graph.InsertClause(tx, clause, strings.TrimSpace(in.ClauseID))
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contract", contractID)
	}

	en.bus.Publish(ctx, events.NewKeyed(events.ClauseCreated, events.EntityClause, clause.ClauseID, actor).
		WithContract(contractID).
		WithSnapshots(nil, clause).
		WithMeta(events.MetaPageKey, PageClauses))
	return clause, nil
}

// UpdateClause replaces the mutable fields of a clause
func (en *Engine) UpdateClause(ctx context.Context, actor string, contractID int64, clauseID string, in ClauseInput) (*e.ContractClause, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	var before, after e.ContractClause
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		c, err := liveContract(tx, contractID)
		if err != nil {
			return err
		}
		cl, err := tx.GetClause(contractID, clauseID)
		if err != nil {
			return err
		}
		before = *cl

		next := in.Build(c, actor)
		next.ID = cl.ID
		next.ClauseID = cl.ClauseID
		next.CreatedBy = cl.CreatedBy
		next.CreatedAt = cl.CreatedAt
		if err := tx.UpdateClause(next); err != nil {
			return err
		}
		after = *next
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "clause", clauseID)
	}

	en.bus.Publish(ctx, events.NewKeyed(events.ClauseUpdated, events.EntityClause, clauseID, actor).
		WithContract(contractID).
		WithSnapshots(&before, &after).
		WithMeta(events.MetaPageKey, PageClauses))
	return &after, nil
}

// DeleteClause removes one clause
func (en *Engine) DeleteClause(ctx context.Context, actor string, contractID int64, clauseID string) error {
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		if _, err := liveContract(tx, contractID); err != nil {
			return err
		}
		return tx.DeleteClause(contractID, clauseID)
	})
	if err != nil {
		return apperrors.FromStore(err, "clause", clauseID)
	}

	en.bus.Publish(ctx, events.NewKeyed(events.ClauseDeleted, events.EntityClause, clauseID, actor).
		WithContract(contractID).
		WithMeta(events.MetaPageKey, PageClauses))
	return nil
}

// DeleteAllClauses removes every clause of a contract and returns how many
func (en *Engine) DeleteAllClauses(ctx context.Context, actor string, contractID int64) (int64, error) {
	var n int64
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		if _, err := liveContract(tx, contractID); err != nil {
			return err
		}
		var err error
		n, err = tx.DeleteAllClauses(contractID)
		return err
	})
	if err != nil {
		return 0, apperrors.FromStore(err, "contract", contractID)
	}

	if n > 0 {
		en.bus.Publish(ctx, events.New(events.ClauseDeleted, events.EntityContract, contractID, actor).
			WithContract(contractID).
			WithMeta(events.MetaPageKey, PageClauses).
			WithMeta("deleted", strconv.FormatInt(n, 10)))
	}
	return n, nil
}
