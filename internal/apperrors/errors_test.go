package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"tprmgrc/internal/repositories/sqlserver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStore(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  Kind
		field string
	}{
		{"not found", sqlserver.ErrNotFound, KindNotFound, ""},
		{"wrapped not found", fmt.Errorf("loading: %w", sqlserver.ErrNotFound), KindNotFound, ""},
		{"unique", &sqlserver.UniqueConflictError{Field: "contract_number"}, KindConflict, "contract_number"},
		{"foreign key", &sqlserver.ForeignKeyError{Field: "vendor_id"}, KindValidation, "vendor_id"},
		{"optimistic lock", sqlserver.ErrOptimisticLock, KindConflict, "row_version"},
		{"deadline", context.DeadlineExceeded, KindDeadlineExceeded, ""},
		{"other", errors.New("socket closed"), KindInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStore(tt.err, "contract", 7)

			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.field, ae.Field)
		})
	}
}

func TestFromStore_PassesTaxonomyThrough(t *testing.T) {
	orig := Forbidden("nope")
	assert.Same(t, orig, FromStore(orig, "approval", 1))
	assert.Nil(t, FromStore(nil, "approval", 1))
}

func TestInternalCarriesRef(t *testing.T) {
	err := Internal(errors.New("boom"))
	assert.NotEmpty(t, err.Ref)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestIsMatchesKindAndField(t *testing.T) {
	err := fmt.Errorf("create: %w", Conflict("contract_number", "taken"))

	assert.ErrorIs(t, err, &Error{Kind: KindConflict})
	assert.ErrorIs(t, err, &Error{Kind: KindConflict, Field: "contract_number"})
	assert.NotErrorIs(t, err, &Error{Kind: KindConflict, Field: "term_id"})
	assert.NotErrorIs(t, err, &Error{Kind: KindNotFound})
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("x", "y")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("x")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(TargetMissing("SLA_CREATION", 4)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("x", "y")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(IllegalTransition("contract", "A", "B")))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}
