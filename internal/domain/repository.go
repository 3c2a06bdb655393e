package domain

import (
	"context"
	"time"
)

// CustomerRepository is the read side of the customer store.
type CustomerRepository interface {
	// Find returns up to q.Limit matching customers in deterministic order,
	// plus the total number of matches.
	Find(ctx context.Context, q CustomerQuery) ([]Customer, int, error)

	// FindByID returns ErrNotFound when the record does not exist.
	FindByID(ctx context.Context, id int64) (*Customer, error)
}

// CustomerImportRepository is used only by the bulk importer.
type CustomerImportRepository interface {
	// DeleteAll removes every customer and reports how many were removed.
	DeleteAll(ctx context.Context) (int64, error)

	// InsertBatch appends customers; ids are assigned by the store.
	InsertBatch(ctx context.Context, customers []Customer) error

	// UpdateBatch overwrites existing customers by id.
	UpdateBatch(ctx context.Context, customers []Customer) error

	// KeyIndex maps every non-empty value of the given fields to a customer id.
	KeyIndex(ctx context.Context, fields []Field) (map[Field]map[string]int64, error)
}

// HistoryRepository is the append-only audit log.
type HistoryRepository interface {
	// Append stores the entry and sets its ID and CreatedAt.
	Append(ctx context.Context, entry *LookupHistoryEntry) error

	// Query returns the filtered page, newest first, and the total count.
	Query(ctx context.Context, f HistoryFilter) ([]LookupHistoryEntry, int, error)
}

// AuditSpool holds audit entries that could not be written to the history store.
// Replay consumes the entries handler accepts; the rest stay spooled in order.
// Write must not block on a running Replay.
type AuditSpool interface {
	Write(ctx context.Context, entry LookupHistoryEntry) error
	Replay(ctx context.Context, handler func(entry LookupHistoryEntry) error) error
}

// SessionRepository persists workflow state with an expiry.
type SessionRepository interface {
	// Get returns ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*SessionContext, error)
	Save(ctx context.Context, s *SessionContext, ttl time.Duration) error
}

// UserRepository stores portal accounts.
type UserRepository interface {
	FindByPhone(ctx context.Context, phone string) (*User, error)
	// Store returns ErrDuplicateEntry when the phone is already registered.
	Store(ctx context.Context, u *User) error
}

// OTPRepository keeps pending signups and resend cooldowns.
type OTPRepository interface {
	SavePending(ctx context.Context, p PendingSignup, ttl time.Duration) error
	GetPending(ctx context.Context, phone string) (*PendingSignup, error)
	DeletePending(ctx context.Context, phone string) error

	// AcquireCooldown reserves the resend slot for phone. It returns the
	// remaining wait and false when a code was sent too recently.
	AcquireCooldown(ctx context.Context, phone string, cooldown time.Duration) (time.Duration, bool, error)
}

// ServiceRequestRepository persists issued requests.
type ServiceRequestRepository interface {
	// Store returns ErrDuplicateEntry when the reference is already taken.
	Store(ctx context.Context, r *ServiceRequest) error
}

// Notifier dispatches the notification for an issued request.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, recipient, body string) error
}
