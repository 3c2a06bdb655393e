package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/V4T54L/service-portal/internal/domain"
)

// MockCustomerRepository evaluates queries against an in-memory slice.
type MockCustomerRepository struct {
	mu        sync.Mutex
	Customers []domain.Customer
	FindCalls int
	Queries   []domain.CustomerQuery
	FindErr   error
}

func (m *MockCustomerRepository) Find(ctx context.Context, q domain.CustomerQuery) ([]domain.Customer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindCalls++
	m.Queries = append(m.Queries, q)
	if m.FindErr != nil {
		return nil, 0, m.FindErr
	}
	var matched []domain.Customer
	for _, c := range m.Customers {
		if q.Matches(c) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return domain.LessCustomer(matched[i], matched[j]) })
	total := len(matched)
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, c := range m.Customers {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MockHistoryRepository records appended entries.
type MockHistoryRepository struct {
	mu        sync.Mutex
	Entries   []domain.LookupHistoryEntry
	AppendErr error
	// AcceptLimit, when positive, fails appends once that many entries are stored.
	AcceptLimit int
	QueryErr    error
	LastQuery   domain.HistoryFilter
}

func (m *MockHistoryRepository) Append(ctx context.Context, entry *domain.LookupHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	if m.AcceptLimit > 0 && len(m.Entries) >= m.AcceptLimit {
		return errors.New("history store unavailable")
	}
	entry.ID = int64(len(m.Entries) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.Entries = append(m.Entries, *entry)
	return nil
}

func (m *MockHistoryRepository) Query(ctx context.Context, f domain.HistoryFilter) ([]domain.LookupHistoryEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastQuery = f
	if m.QueryErr != nil {
		return nil, 0, m.QueryErr
	}
	out := make([]domain.LookupHistoryEntry, 0, len(m.Entries))
	for i := len(m.Entries) - 1; i >= 0; i-- {
		out = append(out, m.Entries[i])
	}
	total := len(out)
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

// Actions returns the action label of every stored entry.
func (m *MockHistoryRepository) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		out[i] = e.Action
	}
	return out
}

// MockAuditSpool keeps spooled entries in memory.
type MockAuditSpool struct {
	mu       sync.Mutex
	Entries  []domain.LookupHistoryEntry
	WriteErr error
}

func (m *MockAuditSpool) Write(ctx context.Context, entry domain.LookupHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

// Replay consumes entries as handler accepts them.
func (m *MockAuditSpool) Replay(ctx context.Context, handler func(entry domain.LookupHistoryEntry) error) error {
	m.mu.Lock()
	entries := append([]domain.LookupHistoryEntry(nil), m.Entries...)
	m.mu.Unlock()
	for _, e := range entries {
		if err := handler(e); err != nil {
			return err
		}
		m.mu.Lock()
		m.Entries = m.Entries[1:]
		m.mu.Unlock()
	}
	return nil
}

// Pending returns the number of entries still spooled.
func (m *MockAuditSpool) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

// MockNotifier records notifications.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []domain.Notification
	Err  error
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, n)
	return nil
}

// SentMessage is one message captured by MockSMSSender.
type SentMessage struct {
	Recipient string
	Body      string
}

// MockSMSSender records outgoing text messages.
type MockSMSSender struct {
	mu       sync.Mutex
	Messages []SentMessage
	Err      error
}

func (m *MockSMSSender) Send(ctx context.Context, recipient, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, SentMessage{Recipient: recipient, Body: body})
	return nil
}

// MockServiceRequestRepository returns StoreErrs in order, then succeeds.
type MockServiceRequestRepository struct {
	mu        sync.Mutex
	Stored    []domain.ServiceRequest
	StoreErrs []error
	Attempts  int
}

func (m *MockServiceRequestRepository) Store(ctx context.Context, r *domain.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts++
	if len(m.StoreErrs) > 0 {
		err := m.StoreErrs[0]
		m.StoreErrs = m.StoreErrs[1:]
		if err != nil {
			return err
		}
	}
	m.Stored = append(m.Stored, *r)
	return nil
}
