package usecase

import "github.com/V4T54L/service-portal/internal/domain"

// Catalog is the fixed, ordered list of requestable services.
type Catalog struct {
	services []domain.ServiceDefinition
	byKey    map[string]domain.ServiceDefinition
}

// NewCatalog panics on duplicate keys; catalogs are built once at startup.
func NewCatalog(services []domain.ServiceDefinition) *Catalog {
	c := &Catalog{
		services: append([]domain.ServiceDefinition(nil), services...),
		byKey:    make(map[string]domain.ServiceDefinition, len(services)),
	}
	for _, s := range services {
		if _, dup := c.byKey[s.Key]; dup {
			panic("duplicate service key: " + s.Key)
		}
		c.byKey[s.Key] = s
	}
	return c
}

// DefaultCatalog returns the portal's built-in services.
func DefaultCatalog() *Catalog {
	return NewCatalog([]domain.ServiceDefinition{
		{Key: "transfer_to_owner", Title: "Transfer to owner", Description: "Move the account into the property owner's name."},
		{Key: "transfer_to_beneficiary", Title: "Transfer to beneficiary", Description: "Move the account into the beneficiary's name."},
		{Key: "pay_debt", Title: "Pay outstanding debt", Description: "Settle the outstanding balance on the account."},
		{Key: "activate_meter", Title: "Activate meter", Description: "Request activation of the meter."},
		{Key: "deactivate_meter", Title: "Deactivate meter", Description: "Request deactivation of the meter."},
		{Key: "update_contact", Title: "Update contact details", Description: "Change the phone number or email on file."},
		{Key: "meter_inspection", Title: "Meter inspection", Description: "Book a technician to inspect the meter."},
	})
}

// All returns the services in catalog order.
func (c *Catalog) All() []domain.ServiceDefinition {
	return append([]domain.ServiceDefinition(nil), c.services...)
}

func (c *Catalog) Get(key string) (domain.ServiceDefinition, bool) {
	s, ok := c.byKey[key]
	return s, ok
}
