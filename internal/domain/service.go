package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceDefinition is one entry of the service catalog.
type ServiceDefinition struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Receipt is returned to the user once a service request is issued.
type Receipt struct {
	Reference    string    `json:"reference"`
	ServiceKey   string    `json:"service_key"`
	ServiceTitle string    `json:"service_title"`
	Role         Role      `json:"role"`
	IssuedAt     time.Time `json:"issued_at"`
}

const ServiceRequestPending = "pending"

// ServiceRequest is the persisted ticket behind a receipt.
type ServiceRequest struct {
	ID         uuid.UUID
	Reference  string
	ServiceKey string
	ActorID    string
	CustomerID *int64
	Role       Role
	Status     string
	CreatedAt  time.Time
}

// Notification is dispatched for every issued request.
type Notification struct {
	Reference    string `json:"reference"`
	ServiceKey   string `json:"service_key"`
	ServiceTitle string `json:"service_title"`
	Role         Role   `json:"role"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}
