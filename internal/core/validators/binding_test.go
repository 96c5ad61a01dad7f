package validators

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"tprmgrc/internal/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"item_name" binding:"required,notblank"`
	Risk string `json:"risk_level" binding:"omitempty,risklevel"`
}

type order struct {
	Number  string    `json:"order_number" binding:"required,notblank,max=5"`
	Email   string    `json:"email" binding:"omitempty,email"`
	Amount  *float64  `json:"amount" binding:"omitempty,gte=0"`
	Due     time.Time `json:"due" binding:"required"`
	Items   []item    `json:"items" binding:"dive"`
	Query   string    `form:"q"`
	Ignored string    `json:"-"`
}

func validOrder() order {
	return order{Number: "A-1", Due: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(validOrder()))

	neg := -1.0
	tests := []struct {
		name  string
		edit  func(o *order)
		field string
		msg   string
	}{
		{"missing", func(o *order) { o.Number = "" }, "order_number", "is required"},
		{"blank", func(o *order) { o.Number = "   " }, "order_number", "is required"},
		{"too long", func(o *order) { o.Number = "ABCDEFG" }, "order_number", "must be at most 5 characters"},
		{"email", func(o *order) { o.Email = "nope" }, "email", "is not a valid address"},
		{"negative", func(o *order) { o.Amount = &neg }, "amount", "must not be below 0"},
		{"zero time", func(o *order) { o.Due = time.Time{} }, "due", "is required"},
		{"nested", func(o *order) { o.Items = []item{{Name: "ok"}, {Name: " "}} }, "item_name", "is required"},
		{"risk", func(o *order) { o.Items = []item{{Name: "ok", Risk: "extreme"}} }, "risk_level", "must be low, medium, high or critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.edit(&o)
			err := Struct(o)
			require.ErrorIs(t, err, &apperrors.Error{Kind: apperrors.KindValidation, Field: tt.field})
			var ae *apperrors.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.msg, ae.Message)
		})
	}

	o := validOrder()
	o.Items = []item{{Name: "ok", Risk: " High "}}
	assert.NoError(t, Struct(o))
}

func TestConfigure_ReportsWireNames(t *testing.T) {
	v := validator.New()
	v.SetTagName(TagName)
	Configure(v)

	type query struct {
		Query string `form:"q" binding:"required"`
		Plain string `binding:"required"`
	}
	err := v.Struct(query{})
	var fields validator.ValidationErrors
	require.True(t, errors.As(err, &fields))
	require.Len(t, fields, 2)
	assert.Equal(t, "q", fields[0].Field())
	assert.Equal(t, "Plain", fields[1].Field())
}

func TestFromBinding(t *testing.T) {
	var dst struct {
		Count int `json:"count"`
	}
	typeErr := json.Unmarshal([]byte(`{"count":"x"}`), &dst)
	require.Error(t, typeErr)
	assert.ErrorIs(t, FromBinding(typeErr), &apperrors.Error{Kind: apperrors.KindValidation, Field: "count"})

	syntaxErr := json.Unmarshal([]byte(`{"count":`), &dst)
	require.Error(t, syntaxErr)
	assert.ErrorIs(t, FromBinding(syntaxErr), &apperrors.Error{Kind: apperrors.KindValidation, Field: "body"})

	assert.ErrorIs(t, FromBinding(io.EOF), &apperrors.Error{Kind: apperrors.KindValidation, Field: "body"})
	assert.True(t, apperrors.Is(FromBinding(errors.New("strconv failed")), apperrors.KindValidation))
}
