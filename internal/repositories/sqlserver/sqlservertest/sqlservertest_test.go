package sqlservertest

import (
	"testing"

	e "tprmgrc/internal/models/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MigratesEveryTable(t *testing.T) {
	s := New(t)
	m := s.DB().Migrator()

	for _, model := range []interface{}{
		&e.Contract{}, &e.ContractTerm{}, &e.ContractClause{}, &e.ContractAmendment{},
		&e.ContractRenewal{}, &e.Approval{}, &e.SLA{}, &e.Vendor{}, &e.VendorContact{},
		&e.RFP{}, &e.VendorInvitation{}, &e.RetentionTimeline{}, &e.TermQuestionnaire{},
	} {
		assert.True(t, m.HasTable(model), "%T", model)
	}
}

func TestNew_LongTextColumnsRoundTrip(t *testing.T) {
	s := New(t)
	long := make([]byte, 9000)
	for i := range long {
		long[i] = 'x'
	}

	row := e.ContractTerm{ContractID: 1, TermID: "term_long", TermText: string(long)}
	require.NoError(t, s.DB().Create(&row).Error)

	var got e.ContractTerm
	require.NoError(t, s.DB().Where("term_id = ?", "term_long").First(&got).Error)
	assert.Len(t, got.TermText, 9000)
}
