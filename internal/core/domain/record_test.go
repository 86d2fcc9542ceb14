package domain_test

import (
	"testing"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "12.50", want: "12.5"},
		{raw: "12,50", want: "12.5"},
		{raw: " -7 ", want: "-7"},
		{raw: "abc", want: "0"},
		{raw: "", want: "0"},
		{raw: "15abc", want: "15"},
		{raw: ".5", want: "0.5"},
		{raw: "1e2", want: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := domain.ParseAmount(tt.raw)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeNegativo(t *testing.T) {
	for _, in := range []string{"50", "-50", "0", "0.01", "-1234.56"} {
		got := domain.NormalizeNegativo(decimal.RequireFromString(in))
		assert.True(t, got.LessThanOrEqual(decimal.Zero), "input %s gave %s", in, got)
		assert.True(t, got.Abs().Equal(decimal.RequireFromString(in).Abs()))
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, domain.ValidateName("Rossi"))
	assert.ErrorIs(t, domain.ValidateName("   "), apperrors.ErrValidation)
	assert.ErrorIs(t, domain.ValidateName(""), apperrors.ErrValidation)
}

func TestParseRecordField(t *testing.T) {
	f, err := domain.ParseRecordField("versamenti_settimanali")
	assert.NoError(t, err)
	assert.Equal(t, domain.FieldVersamentiSettimanali, f)

	_, err = domain.ParseRecordField("user_id")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestComputeResult(t *testing.T) {
	neg := decimal.NewFromInt(-50)
	cauz := decimal.NewFromInt(10)
	vers := decimal.NewFromInt(5)

	assert.True(t, decimal.NewFromInt(-35).Equal(domain.ComputeResult(neg, cauz, vers, true)))
	assert.True(t, decimal.NewFromInt(-40).Equal(domain.ComputeResult(neg, cauz, vers, false)))
}

func TestOwnValuesExcludesVersWhenFlagOff(t *testing.T) {
	r := domain.Record{
		Negativo:              decimal.NewFromInt(-20),
		Cauzione:              decimal.NewFromInt(5),
		VersamentiSettimanali: decimal.NewFromInt(100),
		Disponibilita:         decimal.NewFromInt(7),
	}

	v := domain.OwnValues(r, false)
	assert.True(t, decimal.NewFromInt(-15).Equal(v.Result))
	assert.True(t, v.Vers.IsZero())
	assert.True(t, decimal.NewFromInt(7).Equal(v.Disponibilita))

	v = domain.OwnValues(r, true)
	assert.True(t, decimal.NewFromInt(85).Equal(v.Result))
}

func TestFieldUpdateApply(t *testing.T) {
	r := domain.Record{Name: "old"}
	r = domain.FieldUpdate{Field: domain.FieldName, Text: "new"}.Apply(r)
	r = domain.FieldUpdate{Field: domain.FieldCauzione, Amount: decimal.NewFromInt(3)}.Apply(r)
	assert.Equal(t, "new", r.Name)
	assert.True(t, decimal.NewFromInt(3).Equal(r.Cauzione))
}
