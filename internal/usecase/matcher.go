package usecase

import (
	"context"
	"fmt"

	"github.com/V4T54L/service-portal/internal/domain"
)

// PreviewLimit caps the number of records returned for an ambiguous lookup.
const PreviewLimit = 50

// MatchSet is the outcome of running a query against the customer store.
type MatchSet struct {
	Preview []domain.Customer
	Total   int
}

// BuildCustomerQuery turns normalized identifiers into a conjunctive query.
// The full name is matched as a substring, every other field exactly.
func BuildCustomerQuery(q domain.Identifiers) domain.CustomerQuery {
	query := domain.CustomerQuery{Limit: PreviewLimit}
	for _, f := range domain.Fields {
		v := q.Get(f)
		if v == "" {
			continue
		}
		mode := domain.MatchExact
		if f == domain.FieldFullName {
			mode = domain.MatchContains
		}
		query.Conditions = append(query.Conditions, domain.Condition{Field: f, Mode: mode, Value: v})
	}
	return query
}

// Matcher runs identifier queries against the customer store.
type Matcher struct {
	customers domain.CustomerRepository
}

func NewMatcher(customers domain.CustomerRepository) *Matcher {
	return &Matcher{customers: customers}
}

// Match never queries the store for an empty identifier set.
func (m *Matcher) Match(ctx context.Context, q domain.Identifiers) (MatchSet, error) {
	query := BuildCustomerQuery(q)
	if len(query.Conditions) == 0 {
		return MatchSet{}, nil
	}
	preview, total, err := m.customers.Find(ctx, query)
	if err != nil {
		return MatchSet{}, fmt.Errorf("find customers: %w", err)
	}
	if len(preview) > PreviewLimit {
		preview = preview[:PreviewLimit]
	}
	return MatchSet{Preview: preview, Total: total}, nil
}
