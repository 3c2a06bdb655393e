package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/V4T54L/service-portal/internal/domain"
)

// CustomerRepository is an in-memory customer store for development and tests.
type CustomerRepository struct {
	mu        sync.RWMutex
	customers map[int64]domain.Customer
	nextID    int64
}

func NewCustomerRepository(seed ...domain.Customer) *CustomerRepository {
	r := &CustomerRepository{customers: make(map[int64]domain.Customer), nextID: 1}
	_ = r.InsertBatch(context.Background(), seed)
	return r
}

func (r *CustomerRepository) Find(ctx context.Context, q domain.CustomerQuery) ([]domain.Customer, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Customer
	for _, c := range r.customers {
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

func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *CustomerRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.customers))
	r.customers = make(map[int64]domain.Customer)
	return n, nil
}

// InsertBatch assigns ids to the stored copies, honouring explicit ids.
func (r *CustomerRepository) InsertBatch(ctx context.Context, customers []domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range customers {
		if c.ID == 0 {
			c.ID = r.nextID
		}
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
		r.customers[c.ID] = c
	}
	return nil
}

func (r *CustomerRepository) UpdateBatch(ctx context.Context, customers []domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range customers {
		if _, ok := r.customers[c.ID]; !ok {
			return domain.ErrNotFound
		}
		r.customers[c.ID] = c
	}
	return nil
}

func (r *CustomerRepository) KeyIndex(ctx context.Context, fields []domain.Field) (map[domain.Field]map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	index := make(map[domain.Field]map[string]int64, len(fields))
	for _, f := range fields {
		index[f] = make(map[string]int64)
	}
	ids := make([]int64, 0, len(r.customers))
	for id := range r.customers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c := r.customers[id]
		for _, f := range fields {
			if v := c.Value(f); v != "" {
				index[f][v] = id
			}
		}
	}
	return index, nil
}

// Len returns the number of stored customers.
func (r *CustomerRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.customers)
}
