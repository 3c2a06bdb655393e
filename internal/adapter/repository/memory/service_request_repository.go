package memory

import (
	"context"
	"sync"

	"github.com/V4T54L/service-portal/internal/domain"
)

// ServiceRequestRepository enforces unique references in memory.
type ServiceRequestRepository struct {
	mu       sync.Mutex
	requests map[string]domain.ServiceRequest
}

func NewServiceRequestRepository() *ServiceRequestRepository {
	return &ServiceRequestRepository{requests: make(map[string]domain.ServiceRequest)}
}

func (r *ServiceRequestRepository) Store(ctx context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[req.Reference]; exists {
		return domain.ErrDuplicateEntry
	}
	r.requests[req.Reference] = *req
	return nil
}

// Get returns the request stored under reference.
func (r *ServiceRequestRepository) Get(reference string) (domain.ServiceRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[reference]
	return req, ok
}
