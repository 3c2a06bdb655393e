package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name      string
		query     Identifiers
		wantKind  Kind
		wantValue string
	}{
		{"meter beats phone", Identifiers{FieldMeterNumber: "M-100", FieldPhone: "0512345678"}, KindMeter, "M-100"},
		{"account beats national id", Identifiers{FieldAccountNumber: "A1", FieldNationalID: "1122334455"}, KindAccount, "A1"},
		{"national id beats phone", Identifiers{FieldNationalID: "1122334455", FieldPhone: "0512345678"}, KindNationalID, "1122334455"},
		{"unit beats email", Identifiers{FieldUnitCode: "U-7", FieldEmail: "a@b.co"}, KindUnit, "U-7"},
		{"email beats name", Identifiers{FieldEmail: "a@b.co", FieldFullName: "Ali"}, KindEmail, "a@b.co"},
		{"name only", Identifiers{FieldFullName: "Ali"}, KindName, "Ali"},
		{"empty", Identifiers{}, KindUnknown, ""},
		{"nil", nil, KindUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, value := DetectKind(tt.query)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantValue, value)

			again, _ := DetectKind(tt.query)
			assert.Equal(t, kind, again)
		})
	}
}

func TestIdentifiers_IsEmpty(t *testing.T) {
	assert.True(t, Identifiers{}.IsEmpty())
	assert.True(t, Identifiers{FieldPhone: ""}.IsEmpty())
	assert.False(t, Identifiers{FieldEmail: "x@y.z"}.IsEmpty())
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("national-id")
	assert.True(t, ok)
	assert.Equal(t, KindNationalID, k)

	_, ok = ParseKind("national")
	assert.False(t, ok)
}

func TestCustomerQuery_Matches(t *testing.T) {
	c := Customer{ID: 1, FullName: "Ali Hassan", MeterNumber: "MTR-001", Phone: "0512345678"}
	weiss := Customer{ID: 2, FullName: "Jonas Weiß"}

	tests := []struct {
		name  string
		query CustomerQuery
		want  bool
	}{
		{"name substring ignores case", CustomerQuery{Conditions: []Condition{{FieldFullName, MatchContains, "hAsSaN"}}}, true},
		{"exact ignores case", CustomerQuery{Conditions: []Condition{{FieldMeterNumber, MatchExact, "mtr-001"}}}, true},
		{"exact rejects partial", CustomerQuery{Conditions: []Condition{{FieldMeterNumber, MatchExact, "MTR"}}}, false},
		{"all conditions must hold", CustomerQuery{Conditions: []Condition{
			{FieldFullName, MatchContains, "ali"},
			{FieldPhone, MatchExact, "0599999999"},
		}}, false},
		{"empty query matches nothing", CustomerQuery{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(c))
		})
	}

	// Lowercasing only, like Postgres lower() and ILIKE: ß does not fold to ss.
	assert.False(t, CustomerQuery{Conditions: []Condition{{FieldFullName, MatchContains, "WEISS"}}}.Matches(weiss))
	assert.True(t, CustomerQuery{Conditions: []Condition{{FieldFullName, MatchContains, "WEIß"}}}.Matches(weiss))
}
