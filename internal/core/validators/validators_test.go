package validators

import (
	"encoding/json"
	"testing"
	"time"

	"tprmgrc/internal/apperrors"
	e "tprmgrc/internal/models/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceBag(t *testing.T) {
	tests := []struct {
		name  string
		field string
		in    interface{}
		want  e.JSONMap
	}{
		{"insurance text", BagInsurance, "text", e.JSONMap{"requirements": "text", "type": "text"}},
		{"data protection text", BagDataProtection, "text", e.JSONMap{"clauses": "text", "type": "text"}},
		{"empty string", BagInsurance, "  ", e.JSONMap{}},
		{"nil", BagCustomFields, nil, e.JSONMap{}},
		{"object", BagCustomFields, map[string]interface{}{"a": 1.0}, e.JSONMap{"a": 1.0}},
		{"object as text", BagDataInventory, `{"pii": true}`, e.JSONMap{"pii": true}},
		{"malformed custom fields", BagCustomFields, `{"a":`, e.JSONMap{}},
		{"raw object", BagCustomFields, json.RawMessage(`{"k":"v"}`), e.JSONMap{"k": "v"}},
		{"raw string", BagInsurance, json.RawMessage(`"cover"`), e.JSONMap{"requirements": "cover", "type": "text"}},
		{"array in custom fields", BagCustomFields, []interface{}{1.0}, e.JSONMap{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceBag(tt.field, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceBag_RejectsNumbersInTextBags(t *testing.T) {
	_, err := CoerceBag(BagInsurance, 42.0)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestApplyBags_OnlyTouchesPresentKeys(t *testing.T) {
	c := &e.Contract{CustomFields: e.JSONMap{"keep": "me"}}

	err := ApplyBags(c, Bags{InsuranceRequirements: "cover"}, map[string]bool{BagInsurance: true})
	require.NoError(t, err)
	assert.Equal(t, e.JSONMap{"requirements": "cover", "type": "text"}, c.InsuranceRequirements)
	assert.Equal(t, e.JSONMap{"keep": "me"}, c.CustomFields)
}

func validContract() *e.Contract {
	return &e.Contract{
		ContractNumber: "ACME-001",
		ContractTitle:  "Master services",
		ContractKind:   e.KindMain,
		Status:         e.StatusDraft,
		VersionNumber:  e.InitialVersion,
	}
}

func TestContract(t *testing.T) {
	require.NoError(t, Contract(validContract()))

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	neg := -5.0
	parent := int64(3)

	tests := []struct {
		name  string
		edit  func(c *e.Contract)
		field string
	}{
		{"number", func(c *e.Contract) { c.ContractNumber = "" }, "contract_number"},
		{"title", func(c *e.Contract) { c.ContractTitle = " " }, "contract_title"},
		{"kind", func(c *e.Contract) { c.ContractKind = "OTHER" }, "contract_kind"},
		{"status", func(c *e.Contract) { c.Status = "LIMBO" }, "status"},
		{"subcontract without parent", func(c *e.Contract) { c.ContractKind = e.KindSubcontract }, "parent_contract_id"},
		{"negative value", func(c *e.Contract) { c.ContractValue = &neg }, "contract_value"},
		{"dates", func(c *e.Contract) { c.StartDate, c.EndDate = &start, &end }, "end_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContract()
			tt.edit(c)
			err := Contract(c)
			assert.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: tt.field})
		})
	}

	c := validContract()
	c.ContractKind = e.KindSubcontract
	c.ParentContractID = &parent
	assert.NoError(t, Contract(c))
}

func TestParent(t *testing.T) {
	assert.NoError(t, Parent(&e.Contract{ContractID: 1, ContractKind: e.KindMain}, e.KindSubcontract))
	assert.True(t, apperrors.Is(Parent(&e.Contract{ContractID: 1, IsArchived: true}, e.KindAmendment), apperrors.KindNotFound))
	assert.True(t, apperrors.Is(Parent(nil, e.KindAmendment), apperrors.KindNotFound))
	assert.True(t, apperrors.Is(Parent(&e.Contract{ContractKind: e.KindSubcontract}, e.KindSubcontract), apperrors.KindValidation))
}

func TestAmendment(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	base := func() *e.ContractAmendment {
		return &e.ContractAmendment{
			AmendmentNumber: "AMD-1",
			AmendmentDate:   now,
			WorkflowStatus:  e.AmendmentPending,
			AffectedArea:    e.AffectsBoth,
		}
	}
	require.NoError(t, Amendment(base()))

	a := base()
	a.WorkflowStatus = e.AmendmentApproved
	assert.ErrorIs(t, Amendment(a), &apperrors.Error{Kind: apperrors.KindValidation, Field: "approval_date"})
	a.ApprovalDate = &now
	assert.NoError(t, Amendment(a))

	a = base()
	a.AffectedArea = e.AffectsTerms
	a.AmendedClauseIDs = "clause_1"
	assert.ErrorIs(t, Amendment(a), &apperrors.Error{Kind: apperrors.KindValidation, Field: "amended_clause_ids"})

	a = base()
	a.AffectedArea = e.AffectsClauses
	a.AmendedTermIDs = " term_1 , "
	assert.ErrorIs(t, Amendment(a), &apperrors.Error{Kind: apperrors.KindValidation, Field: "amended_term_ids"})

	a = base()
	a.FinancialImpact = -1
	assert.ErrorIs(t, Amendment(a), &apperrors.Error{Kind: apperrors.KindValidation, Field: "financial_impact"})
}

func TestRenewal(t *testing.T) {
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	newID := int64(9)
	base := func() *e.ContractRenewal {
		return &e.ContractRenewal{
			RenewalDecision: e.DecisionPending,
			Status:          e.RenewalInitiated,
			RenewalDate:     day,
		}
	}
	require.NoError(t, Renewal(base(), true))

	r := base()
	r.RenewalDecision = e.DecisionRenew
	r.DecisionDate = &day
	r.DecidedBy = "u1"
	assert.ErrorIs(t, Renewal(r, false), &apperrors.Error{Kind: apperrors.KindValidation, Field: "new_contract_id"})
	r.NewContractID = &newID
	assert.NoError(t, Renewal(r, false))

	r = base()
	r.RenewalDecision = e.DecisionTerminate
	r.DecidedBy = "u1"
	assert.ErrorIs(t, Renewal(r, false), &apperrors.Error{Kind: apperrors.KindValidation, Field: "decision_date"})

	r = base()
	r.RenewalDecision = e.DecisionTerminate
	r.DecisionDate = &day
	assert.ErrorIs(t, Renewal(r, false), &apperrors.Error{Kind: apperrors.KindValidation, Field: "decided_by"})

	r = base()
	r.Status = e.RenewalDecisionMade
	assert.ErrorIs(t, Renewal(r, false), &apperrors.Error{Kind: apperrors.KindValidation, Field: "renewal_decision"})

	late := day.AddDate(0, 0, 3)
	r = base()
	r.NotificationDate = &late
	assert.NoError(t, Renewal(r, false))
	assert.ErrorIs(t, Renewal(r, true), &apperrors.Error{Kind: apperrors.KindValidation, Field: "notification_date"})
}

func TestAssignment(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a := &e.Approval{
		ObjectType:   e.ObjectContractCreation,
		ObjectID:     1,
		AssignerID:   "boss",
		AssigneeID:   "u",
		AssignedDate: now,
		DueDate:      now.AddDate(0, 0, 7),
	}
	require.NoError(t, Assignment(a))

	a.DueDate = now.Add(-time.Hour)
	assert.ErrorIs(t, Assignment(a), &apperrors.Error{Kind: apperrors.KindValidation, Field: "due_date"})

	assert.True(t, KnownObjectType(e.ObjectSLATermination))
	assert.False(t, KnownObjectType("VENDOR_ONBOARDING"))
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("email", "a@b.io"))
	assert.ErrorIs(t, Email("email", "nope"), &apperrors.Error{Kind: apperrors.KindValidation, Field: "email"})
	assert.ErrorIs(t, Email("vendor_email", ""), &apperrors.Error{Kind: apperrors.KindValidation, Field: "vendor_email"})
}

func TestSplitJoinIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitIDs(" a, ,b "))
	assert.Nil(t, SplitIDs(""))
	assert.Equal(t, "a,b", JoinIDs([]string{"a", "b"}))
}
