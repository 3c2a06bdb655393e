package domain

import (
	"encoding/json"
	"fmt"
)

// CustomerSource tells where the session's customer came from.
type CustomerSource string

const (
	SourceNone   CustomerSource = "none"
	SourceDB     CustomerSource = "db"
	SourceManual CustomerSource = "manual"
)

// CustomerRef is either a StoredCustomer or a ManualCustomer.
type CustomerRef interface {
	Source() CustomerSource
	customerRef()
}

// StoredCustomer refers to a record in the customer store.
type StoredCustomer struct {
	ID int64
}

func (StoredCustomer) Source() CustomerSource { return SourceDB }
func (StoredCustomer) customerRef()           {}

// ManualCustomer carries the identifiers the user typed when nothing matched.
type ManualCustomer struct {
	Snapshot Identifiers
}

func (ManualCustomer) Source() CustomerSource { return SourceManual }
func (ManualCustomer) customerRef()           {}

// Role is the capacity in which the user acts for the customer.
type Role string

const (
	RoleUnset       Role = ""
	RoleBeneficiary Role = "beneficiary"
	RoleOwner       Role = "owner"
)

// ParseRole accepts only beneficiary and owner.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBeneficiary, RoleOwner:
		return Role(s), nil
	}
	return RoleUnset, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Step is the workflow position derived from a session.
type Step string

const (
	StepIdle                     Step = "idle"
	StepAwaitingRole             Step = "awaiting_role"
	StepAwaitingServiceSelection Step = "awaiting_service_selection"
)

// SessionContext is the per-session workflow state.
type SessionContext struct {
	ID         string
	OwnerID    string // user id of the actor who started the lookup
	Customer   CustomerRef
	Role       Role
	PreviewIDs []int64
}

// NewSessionContext returns an idle session.
func NewSessionContext(id string) *SessionContext {
	return &SessionContext{ID: id}
}

// Source returns the customer source, SourceNone when no customer is bound.
func (s *SessionContext) Source() CustomerSource {
	if s == nil || s.Customer == nil {
		return SourceNone
	}
	return s.Customer.Source()
}

// HasCustomer reports whether a stored or manual customer is bound.
func (s *SessionContext) HasCustomer() bool {
	return s.Source() != SourceNone
}

// Step derives the workflow position.
func (s *SessionContext) Step() Step {
	switch {
	case !s.HasCustomer():
		return StepIdle
	case s.Role == RoleUnset:
		return StepAwaitingRole
	default:
		return StepAwaitingServiceSelection
	}
}

// Reset replaces the whole context, keeping only the session id.
func (s *SessionContext) Reset() {
	*s = SessionContext{ID: s.ID}
}

// OwnedBy reports whether the context was started by the given user.
func (s *SessionContext) OwnedBy(userID string) bool {
	return s != nil && s.OwnerID == userID
}

type sessionRecord struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id,omitempty"`
	Source       CustomerSource `json:"customer_source"`
	CustomerID   *int64         `json:"customer_id,omitempty"`
	CustomerData Identifiers    `json:"customer_data,omitempty"`
	Role         Role           `json:"role,omitempty"`
	PreviewIDs   []int64        `json:"preview_ids,omitempty"`
}

// MarshalJSON keeps customer_id and customer_data mutually exclusive.
func (s SessionContext) MarshalJSON() ([]byte, error) {
	rec := sessionRecord{ID: s.ID, OwnerID: s.OwnerID, Source: SourceNone, Role: s.Role, PreviewIDs: s.PreviewIDs}
	switch c := s.Customer.(type) {
	case StoredCustomer:
		id := c.ID
		rec.Source = SourceDB
		rec.CustomerID = &id
	case ManualCustomer:
		rec.Source = SourceManual
		rec.CustomerData = c.Snapshot
	}
	return json.Marshal(rec)
}

func (s *SessionContext) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*s = SessionContext{ID: rec.ID, OwnerID: rec.OwnerID, Role: rec.Role, PreviewIDs: rec.PreviewIDs}
	switch rec.Source {
	case SourceDB:
		if rec.CustomerID == nil {
			return fmt.Errorf("session %s: db source without customer id", rec.ID)
		}
		s.Customer = StoredCustomer{ID: *rec.CustomerID}
	case SourceManual:
		s.Customer = ManualCustomer{Snapshot: rec.CustomerData}
	default:
		s.Role = RoleUnset
	}
	return nil
}
