package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/service-portal/internal/domain"
)

// ServiceMenu is what the service selection step shows.
type ServiceMenu struct {
	Role     domain.Role                `json:"role"`
	Source   domain.CustomerSource      `json:"customer_source"`
	Customer domain.Customer            `json:"customer"`
	Services []domain.ServiceDefinition `json:"services"`
}

// WorkflowUseCase drives role selection and service requests for a session
// that already has a customer.
type WorkflowUseCase struct {
	sessions   domain.SessionRepository
	customers  domain.CustomerRepository
	catalog    *Catalog
	issuer     *RequestIssuer
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewWorkflowUseCase(
	sessions domain.SessionRepository,
	customers domain.CustomerRepository,
	catalog *Catalog,
	issuer *RequestIssuer,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *WorkflowUseCase {
	return &WorkflowUseCase{
		sessions:   sessions,
		customers:  customers,
		catalog:    catalog,
		issuer:     issuer,
		sessionTTL: sessionTTL,
		logger:     logger.With("component", "workflow_usecase"),
	}
}

// SubmitRole records the role. Without a customer it returns
// ErrInvalidState; an unknown role returns ErrInvalidRole. Both leave the
// session untouched.
func (uc *WorkflowUseCase) SubmitRole(ctx context.Context, meta RequestMeta, role string) (*domain.SessionContext, error) {
	session, err := uc.loadWithCustomer(ctx, meta)
	if err != nil {
		return nil, err
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	session.Role = parsed
	if err := uc.sessions.Save(ctx, session, uc.sessionTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// ListServices returns the catalog for a session that has a customer and a role.
func (uc *WorkflowUseCase) ListServices(ctx context.Context, meta RequestMeta) (*ServiceMenu, error) {
	session, customer, err := uc.loadReady(ctx, meta)
	if err != nil {
		return nil, err
	}
	return &ServiceMenu{
		Role:     session.Role,
		Source:   session.Source(),
		Customer: customer,
		Services: uc.catalog.All(),
	}, nil
}

// SubmitServiceRequest issues a request and leaves the session at service
// selection so further requests can follow.
func (uc *WorkflowUseCase) SubmitServiceRequest(ctx context.Context, meta RequestMeta, serviceKey string) (*domain.Receipt, error) {
	session, customer, err := uc.loadReady(ctx, meta)
	if err != nil {
		return nil, err
	}
	return uc.issuer.Issue(ctx, IssueRequest{
		Meta:        meta,
		ServiceKey:  serviceKey,
		CustomerRef: session.Customer,
		Customer:    customer,
		Role:        session.Role,
	})
}

// Catalog exposes the services for re-display after a rejected request.
func (uc *WorkflowUseCase) Catalog() []domain.ServiceDefinition {
	return uc.catalog.All()
}

func (uc *WorkflowUseCase) loadWithCustomer(ctx context.Context, meta RequestMeta) (*domain.SessionContext, error) {
	session, err := uc.sessions.Get(ctx, meta.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no lookup in session", domain.ErrInvalidState)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !session.OwnedBy(meta.actorID()) {
		uc.logger.Warn("session used by a different user", "session_id", meta.SessionID, "user_id", meta.actorID())
		return nil, fmt.Errorf("%w: session belongs to another user", domain.ErrInvalidState)
	}
	if !session.HasCustomer() {
		return nil, fmt.Errorf("%w: no customer selected", domain.ErrInvalidState)
	}
	return session, nil
}

func (uc *WorkflowUseCase) loadReady(ctx context.Context, meta RequestMeta) (*domain.SessionContext, domain.Customer, error) {
	session, err := uc.loadWithCustomer(ctx, meta)
	if err != nil {
		return nil, domain.Customer{}, err
	}
	if session.Role == domain.RoleUnset {
		return nil, domain.Customer{}, fmt.Errorf("%w: no role selected", domain.ErrInvalidState)
	}
	customer, err := uc.resolveCustomer(ctx, session.Customer)
	if err != nil {
		return nil, domain.Customer{}, err
	}
	return session, customer, nil
}

func (uc *WorkflowUseCase) resolveCustomer(ctx context.Context, ref domain.CustomerRef) (domain.Customer, error) {
	switch c := ref.(type) {
	case domain.StoredCustomer:
		found, err := uc.customers.FindByID(ctx, c.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Customer{}, fmt.Errorf("%w: customer %d no longer exists", domain.ErrInvalidState, c.ID)
			}
			return domain.Customer{}, fmt.Errorf("find customer: %w", err)
		}
		return *found, nil
	case domain.ManualCustomer:
		return domain.CustomerFromIdentifiers(c.Snapshot), nil
	}
	return domain.Customer{}, domain.ErrInvalidState
}
