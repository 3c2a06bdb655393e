package usecase

import (
	"io"
	"log/slog"
	"time"

	"github.com/V4T54L/service-portal/internal/adapter/repository/memory"
	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/domain/mocks"
)

const testSessionTTL = 30 * time.Minute

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testCustomers = []domain.Customer{
	{ID: 1, FullName: "Ali Hassan", MeterNumber: "MTR-100", AccountNumber: "ACC-100", NationalID: "1122334455", Phone: "0512345678", Email: "ali@example.com"},
	{ID: 2, FullName: "Ali Omar", MeterNumber: "MTR-200", AccountNumber: "ACC-200"},
	{ID: 3, FullName: "Sara Zaki", MeterNumber: "MTR-300", AccountNumber: "ACC-300", UnitCode: "U-9"},
}

type portalFixture struct {
	customers *mocks.MockCustomerRepository
	history   *mocks.MockHistoryRepository
	sessions  *memory.SessionRepository
	tickets   *mocks.MockServiceRequestRepository
	notifier  *mocks.MockNotifier
	lookup    *LookupUseCase
	workflow  *WorkflowUseCase
}

func newPortalFixture(customers ...domain.Customer) *portalFixture {
	if len(customers) == 0 {
		customers = testCustomers
	}
	f := &portalFixture{
		customers: &mocks.MockCustomerRepository{Customers: customers},
		history:   &mocks.MockHistoryRepository{},
		sessions:  memory.NewSessionRepository(),
		tickets:   &mocks.MockServiceRequestRepository{},
		notifier:  &mocks.MockNotifier{},
	}
	logger := discardLogger()
	audit := NewAuditLogger(f.history, nil, nil, logger)
	catalog := DefaultCatalog()
	issuer := NewRequestIssuer(catalog, NewReferenceGenerator("UW"), f.tickets, f.notifier, audit, nil, logger)
	f.lookup = NewLookupUseCase(f.customers, f.sessions, audit, testSessionTTL, nil, logger)
	f.workflow = NewWorkflowUseCase(f.sessions, f.customers, catalog, issuer, testSessionTTL, logger)
	return f
}

func meta(sessionID string) RequestMeta {
	return metaFor(sessionID, "user-1")
}

func metaFor(sessionID, userID string) RequestMeta {
	return RequestMeta{
		SessionID: sessionID,
		Actor:     &domain.Actor{UserID: userID, Phone: "0500000000"},
		ClientIP:  "10.0.0.1",
		UserAgent: "test-agent",
	}
}
