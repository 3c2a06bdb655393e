package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/V4T54L/service-portal/internal/domain"
)

// ServiceRequestRepository persists issued requests; reference is unique.
type ServiceRequestRepository struct {
	db *sql.DB
}

func NewServiceRequestRepository(db *sql.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

func (r *ServiceRequestRepository) Store(ctx context.Context, req *domain.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (id, reference, service_key, user_id, customer_id, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var customerID sql.NullInt64
	if req.CustomerID != nil {
		customerID = sql.NullInt64{Int64: *req.CustomerID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.Reference,
		req.ServiceKey,
		nullString(req.ActorID),
		customerID,
		string(req.Role),
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("store service request: %w", err)
	}
	return nil
}
