package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/domain"
)

const maxReferenceAttempts = 3

// IssueRequest carries everything needed to issue one service request.
type IssueRequest struct {
	Meta        RequestMeta
	ServiceKey  string
	CustomerRef domain.CustomerRef
	Customer    domain.Customer
	Role        domain.Role
}

// RequestIssuer turns a catalog selection into a receipt, a notification
// and an audit entry.
type RequestIssuer struct {
	catalog  *Catalog
	refs     *ReferenceGenerator
	tickets  domain.ServiceRequestRepository
	notifier domain.Notifier
	audit    *AuditLogger
	metrics  *metrics.PortalMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewRequestIssuer creates a RequestIssuer. tickets may be nil.
func NewRequestIssuer(
	catalog *Catalog,
	refs *ReferenceGenerator,
	tickets domain.ServiceRequestRepository,
	notifier domain.Notifier,
	audit *AuditLogger,
	m *metrics.PortalMetrics,
	logger *slog.Logger,
) *RequestIssuer {
	return &RequestIssuer{
		catalog:  catalog,
		refs:     refs,
		tickets:  tickets,
		notifier: notifier,
		audit:    audit,
		metrics:  m,
		logger:   logger.With("component", "request_issuer"),
		now:      time.Now,
	}
}

// Issue fails only for keys outside the catalog. Ticket storage and
// notification are best-effort.
func (i *RequestIssuer) Issue(ctx context.Context, req IssueRequest) (*domain.Receipt, error) {
	ctx, span := otel.Tracer("request-issuer").Start(ctx, "Issue")
	defer span.End()

	service, ok := i.catalog.Get(req.ServiceKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownService, req.ServiceKey)
	}

	reference, err := i.reserveReference(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("request.reference", reference), attribute.String("request.service", service.Key))

	receipt := &domain.Receipt{
		Reference:    reference,
		ServiceKey:   service.Key,
		ServiceTitle: service.Title,
		Role:         req.Role,
		IssuedAt:     i.now().UTC(),
	}

	notification := domain.Notification{
		Reference:    reference,
		ServiceKey:   service.Key,
		ServiceTitle: service.Title,
		Role:         req.Role,
		CustomerName: req.Customer.FullName,
		Phone:        req.Customer.Phone,
		Email:        req.Customer.Email,
	}
	if err := i.notifier.Notify(ctx, notification); err != nil {
		i.logger.Warn("notification dispatch failed", "error", err, "reference", reference)
	}

	message := fmt.Sprintf("reference %s, role %s, service %s", reference, req.Role, service.Title)
	_ = i.audit.Record(ctx, req.Meta.audit(customerIdentifiers(req.Customer), domain.RequestAction(service.Key), true, message))
	i.metrics.ObserveRequest(service.Key)

	return receipt, nil
}

// reserveReference generates a reference and, when tickets are persisted,
// regenerates it if the store already holds the same one.
func (i *RequestIssuer) reserveReference(ctx context.Context, req IssueRequest) (string, error) {
	var reference string
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		ref, err := i.refs.Generate()
		if err != nil {
			return "", err
		}
		reference = ref
		if i.tickets == nil {
			return reference, nil
		}

		ticket := &domain.ServiceRequest{
			ID:         uuid.New(),
			Reference:  reference,
			ServiceKey: req.ServiceKey,
			Role:       req.Role,
			Status:     domain.ServiceRequestPending,
			CreatedAt:  i.now().UTC(),
		}
		if req.Meta.Actor != nil {
			ticket.ActorID = req.Meta.Actor.UserID
		}
		if stored, ok := req.CustomerRef.(domain.StoredCustomer); ok {
			id := stored.ID
			ticket.CustomerID = &id
		}

		err = i.tickets.Store(ctx, ticket)
		if err == nil {
			return reference, nil
		}
		if !errors.Is(err, domain.ErrDuplicateEntry) {
			i.logger.Error("failed to store service request", "error", err, "reference", reference)
			return reference, nil
		}
		i.logger.Warn("reference collision, regenerating", "reference", reference, "attempt", attempt)
	}
	i.logger.Error("could not reserve a unique reference", "reference", reference)
	return reference, nil
}
