package domain

import (
	"strings"
)

// Customer is a single row of the imported customer dataset.
// No field is unique; the same person may appear more than once.
type Customer struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	MeterNumber   string `json:"meter_number"`
	AccountNumber string `json:"account_number"`
	NationalID    string `json:"national_id"`
	Phone         string `json:"phone"`
	UnitCode      string `json:"unit_code"`
	Email         string `json:"email"`
}

// Value returns the customer's value for an identifier field.
func (c Customer) Value(f Field) string {
	switch f {
	case FieldFullName:
		return c.FullName
	case FieldMeterNumber:
		return c.MeterNumber
	case FieldAccountNumber:
		return c.AccountNumber
	case FieldNationalID:
		return c.NationalID
	case FieldPhone:
		return c.Phone
	case FieldUnitCode:
		return c.UnitCode
	case FieldEmail:
		return c.Email
	}
	return ""
}

// IsBlank reports whether every identifier field is empty.
func (c Customer) IsBlank() bool {
	for _, f := range Fields {
		if c.Value(f) != "" {
			return false
		}
	}
	return true
}

// CustomerFromIdentifiers builds an unsaved customer from a manual-entry snapshot.
func CustomerFromIdentifiers(q Identifiers) Customer {
	return Customer{
		FullName:      q.Get(FieldFullName),
		MeterNumber:   q.Get(FieldMeterNumber),
		AccountNumber: q.Get(FieldAccountNumber),
		NationalID:    q.Get(FieldNationalID),
		Phone:         q.Get(FieldPhone),
		UnitCode:      q.Get(FieldUnitCode),
		Email:         q.Get(FieldEmail),
	}
}

// MatchMode selects how a condition compares a stored value with the query value.
type MatchMode int

const (
	// MatchExact compares whole values, ignoring case.
	MatchExact MatchMode = iota
	// MatchContains checks for a case-insensitive substring.
	MatchContains
)

// Condition is one clause of a customer query.
type Condition struct {
	Field Field
	Mode  MatchMode
	Value string
}

// CustomerQuery is a conjunction of conditions. An empty query matches nothing.
type CustomerQuery struct {
	Conditions []Condition
	Limit      int
}

// Matches evaluates the query against a single customer. Comparison is
// per-rune lowercasing, the same as Postgres lower() and ILIKE.
func (q CustomerQuery) Matches(c Customer) bool {
	if len(q.Conditions) == 0 {
		return false
	}
	for _, cond := range q.Conditions {
		stored := strings.ToLower(c.Value(cond.Field))
		want := strings.ToLower(cond.Value)
		switch cond.Mode {
		case MatchContains:
			if !strings.Contains(stored, want) {
				return false
			}
		default:
			if stored != want {
				return false
			}
		}
	}
	return true
}

// LessCustomer is the deterministic result order: full name, account number, id.
func LessCustomer(a, b Customer) bool {
	if a.FullName != b.FullName {
		return a.FullName < b.FullName
	}
	if a.AccountNumber != b.AccountNumber {
		return a.AccountNumber < b.AccountNumber
	}
	return a.ID < b.ID
}
