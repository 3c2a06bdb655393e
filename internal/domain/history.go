package domain

import (
	"strings"
	"time"
)

const (
	// ActionLookup labels entries written by a lookup submission.
	ActionLookup = "lookup"
	// ActionSelect labels entries written when a preview row is chosen.
	ActionSelect = "select"

	requestActionPrefix = "request:"
)

// RequestAction returns the audit action label for a service request.
func RequestAction(serviceKey string) string {
	return requestActionPrefix + serviceKey
}

// IsRequestAction reports whether action was produced by RequestAction.
func IsRequestAction(action string) bool {
	return strings.HasPrefix(action, requestActionPrefix)
}

// Actor is the authenticated user behind a request.
type Actor struct {
	UserID string `json:"user_id"`
	Phone  string `json:"phone"`
}

// LookupHistoryEntry is one immutable audit record.
type LookupHistoryEntry struct {
	ID          int64       `json:"id"`
	ActorID     string      `json:"actor_id,omitempty"`
	Kind        Kind        `json:"query_type"`
	QueryValue  string      `json:"query_value"`
	Snapshot    Identifiers `json:"snapshot"`
	Action      string      `json:"action"`
	ResultFound bool        `json:"result_found"`
	Message     string      `json:"message"`
	ClientIP    string      `json:"ip_address,omitempty"`
	UserAgent   string      `json:"user_agent"`
	CreatedAt   time.Time   `json:"created_at"`
}

// HistoryPageSize is the number of audit entries per page.
const HistoryPageSize = 20

// HistoryFilter narrows an audit log query. Zero values disable a filter.
type HistoryFilter struct {
	Query  string
	Kind   Kind
	Found  *bool
	Limit  int
	Offset int
}
