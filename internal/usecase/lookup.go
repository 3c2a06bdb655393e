package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/domain"
)

const MsgAuditStoreUnavailable = "customer store unavailable"

// RequestMeta identifies who is acting and from where.
type RequestMeta struct {
	SessionID string
	Actor     *domain.Actor
	ClientIP  string
	UserAgent string
}

func (m RequestMeta) actorID() string {
	if m.Actor == nil {
		return ""
	}
	return m.Actor.UserID
}

func (m RequestMeta) audit(q domain.Identifiers, action string, found bool, message string) AuditRecord {
	return AuditRecord{
		Actor:     m.Actor,
		Query:     q,
		Action:    action,
		Found:     found,
		Message:   message,
		ClientIP:  m.ClientIP,
		UserAgent: m.UserAgent,
	}
}

// LookupResult is returned for every lookup submission.
type LookupResult struct {
	Outcome  Outcome                 `json:"outcome"`
	Query    domain.Identifiers      `json:"query"`
	Errors   domain.ValidationErrors `json:"errors,omitempty"`
	Customer *domain.Customer        `json:"customer,omitempty"`
	Preview  []domain.Customer       `json:"preview,omitempty"`
	Total    int                     `json:"total"`
	Step     domain.Step             `json:"next_step"`
}

// LookupUseCase resolves identifiers to a customer and starts the workflow.
type LookupUseCase struct {
	matcher    *Matcher
	customers  domain.CustomerRepository
	sessions   domain.SessionRepository
	audit      *AuditLogger
	sessionTTL time.Duration
	metrics    *metrics.PortalMetrics
	logger     *slog.Logger
}

func NewLookupUseCase(
	customers domain.CustomerRepository,
	sessions domain.SessionRepository,
	audit *AuditLogger,
	sessionTTL time.Duration,
	m *metrics.PortalMetrics,
	logger *slog.Logger,
) *LookupUseCase {
	return &LookupUseCase{
		matcher:    NewMatcher(customers),
		customers:  customers,
		sessions:   sessions,
		audit:      audit,
		sessionTTL: sessionTTL,
		metrics:    m,
		logger:     logger.With("component", "lookup_usecase"),
	}
}

// FormDefaults returns an empty lookup form, with the phone pre-filled from
// the actor's account when it is numeric.
func (uc *LookupUseCase) FormDefaults(actor *domain.Actor) domain.Identifiers {
	q := domain.Identifiers{}.Clone()
	if actor != nil {
		q[domain.FieldPhone] = Digits(actor.Phone)
	}
	return q
}

// SubmitLookup replaces the session context with the outcome of a new lookup.
func (uc *LookupUseCase) SubmitLookup(ctx context.Context, meta RequestMeta, raw map[string]string) (*LookupResult, error) {
	ctx, span := otel.Tracer("lookup-service").Start(ctx, "SubmitLookup")
	defer span.End()

	q := NormalizeIdentifiers(raw)
	session := domain.NewSessionContext(meta.SessionID)
	session.OwnerID = meta.actorID()

	if errs := ValidateIdentifiers(q); errs != nil {
		if err := uc.sessions.Save(ctx, session, uc.sessionTTL); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		_ = uc.audit.Record(ctx, meta.audit(q, domain.ActionLookup, false, MsgAuditValidationFailed))
		uc.metrics.ObserveLookup(string(OutcomeInvalid))
		return &LookupResult{Outcome: OutcomeInvalid, Query: q, Errors: errs, Step: session.Step()}, nil
	}

	set, err := uc.matcher.Match(ctx, q)
	if err != nil {
		uc.logger.Error("customer lookup failed", "error", err)
		_ = uc.audit.Record(ctx, meta.audit(q, domain.ActionLookup, false, MsgAuditStoreUnavailable))
		return nil, err
	}

	res := Resolve(q, set)
	span.SetAttributes(attribute.String("lookup.outcome", string(res.Outcome)), attribute.Int("lookup.total", set.Total))

	result := &LookupResult{Outcome: res.Outcome, Query: q, Total: set.Total}
	switch res.Outcome {
	case OutcomeManual:
		session.Customer = res.Customer
		c := domain.CustomerFromIdentifiers(q)
		result.Customer = &c
	case OutcomeSingle:
		session.Customer = res.Customer
		c := set.Preview[0]
		result.Customer = &c
	case OutcomeMultiple:
		result.Preview = set.Preview
		session.PreviewIDs = make([]int64, len(set.Preview))
		for i, c := range set.Preview {
			session.PreviewIDs[i] = c.ID
		}
	}

	if err := uc.sessions.Save(ctx, session, uc.sessionTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	_ = uc.audit.Record(ctx, meta.audit(q, domain.ActionLookup, res.Found, res.Message))
	uc.metrics.ObserveLookup(string(res.Outcome))

	result.Step = session.Step()
	return result, nil
}

// SelectFromPreview binds one record of the last preview to the session and
// continues as if the lookup had matched exactly that record.
func (uc *LookupUseCase) SelectFromPreview(ctx context.Context, meta RequestMeta, customerID int64) (*LookupResult, error) {
	ctx, span := otel.Tracer("lookup-service").Start(ctx, "SelectFromPreview")
	defer span.End()

	session, err := uc.sessions.Get(ctx, meta.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidState
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !session.OwnedBy(meta.actorID()) {
		return nil, fmt.Errorf("%w: session belongs to another user", domain.ErrInvalidState)
	}
	if !slices.Contains(session.PreviewIDs, customerID) {
		return nil, fmt.Errorf("%w: customer %d was not offered", domain.ErrInvalidState, customerID)
	}

	customer, err := uc.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d no longer exists", domain.ErrInvalidState, customerID)
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}

	session.Reset()
	session.OwnerID = meta.actorID()
	session.Customer = domain.StoredCustomer{ID: customer.ID}
	if err := uc.sessions.Save(ctx, session, uc.sessionTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	q := customerIdentifiers(*customer)
	_ = uc.audit.Record(ctx, meta.audit(q, domain.ActionSelect, true, MsgAuditPreviewSelected))
	uc.metrics.ObserveLookup(string(OutcomeSingle))

	return &LookupResult{Outcome: OutcomeSingle, Query: q, Customer: customer, Total: 1, Step: session.Step()}, nil
}

func customerIdentifiers(c domain.Customer) domain.Identifiers {
	q := make(domain.Identifiers, len(domain.Fields))
	for _, f := range domain.Fields {
		q[f] = c.Value(f)
	}
	return q
}
