package usecase

import "github.com/V4T54L/service-portal/internal/domain"

// Outcome is the resolver's verdict for a lookup.
type Outcome string

const (
	OutcomeInvalid  Outcome = "invalid"
	OutcomeNoMatch  Outcome = "no_match"
	OutcomeManual   Outcome = "manual_entry"
	OutcomeSingle   Outcome = "single_match"
	OutcomeMultiple Outcome = "multiple_matches"
)

// Audit messages written for each outcome.
const (
	MsgAuditValidationFailed = "validation failed"
	MsgAuditNoResults        = "no results"
	MsgAuditManualEntry      = "manual entry, no match"
	MsgAuditSingleMatch      = "single match"
	MsgAuditMultipleMatches  = "multiple matches"
	MsgAuditPreviewSelected  = "selected from preview"
)

// Resolution tells the workflow how to continue after a lookup.
type Resolution struct {
	Outcome  Outcome
	Customer domain.CustomerRef
	Found    bool
	Message  string
}

// SelfSufficient reports whether the identifiers describe a customer well
// enough to continue without a stored record.
func SelfSufficient(q domain.Identifiers) bool {
	if !q.Has(domain.FieldFullName) {
		return false
	}
	return len(q.Get(domain.FieldNationalID)) == nationalIDLength ||
		q.Has(domain.FieldPhone) ||
		q.Has(domain.FieldMeterNumber) ||
		q.Has(domain.FieldAccountNumber) ||
		q.Has(domain.FieldUnitCode)
}

// Resolve classifies a match set. It is a pure function of its inputs.
func Resolve(q domain.Identifiers, set MatchSet) Resolution {
	switch {
	case set.Total == 0 && SelfSufficient(q):
		return Resolution{
			Outcome:  OutcomeManual,
			Customer: domain.ManualCustomer{Snapshot: q.Clone()},
			Found:    true,
			Message:  MsgAuditManualEntry,
		}
	case set.Total == 0:
		return Resolution{Outcome: OutcomeNoMatch, Message: MsgAuditNoResults}
	case set.Total == 1 && len(set.Preview) == 1:
		return Resolution{
			Outcome:  OutcomeSingle,
			Customer: domain.StoredCustomer{ID: set.Preview[0].ID},
			Found:    true,
			Message:  MsgAuditSingleMatch,
		}
	default:
		return Resolution{Outcome: OutcomeMultiple, Found: true, Message: MsgAuditMultipleMatches}
	}
}
