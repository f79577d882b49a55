package project

import (
	"strings"

	"github.com/google/uuid"
	"github.com/timebill/backend/internal/domain/shared"
)

// ClientStatus represents the state of a client account
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// String returns the string representation of the status
func (s ClientStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s ClientStatus) IsValid() bool {
	switch s {
	case ClientStatusActive, ClientStatusInactive:
		return true
	default:
		return false
	}
}

// Client is the customer a project's hours are billed to
type Client struct {
	shared.BaseAggregateRoot
	TenantID uuid.UUID
	Name     string
	Code     string
	Status   ClientStatus
}

// NewClient creates a new active client
func NewClient(tenantID uuid.UUID, name, code string) (*Client, error) {
	name = strings.TrimSpace(name)
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Client name is required")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Client code is required")
	}

	return &Client{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		Name:              name,
		Code:              code,
		Status:            ClientStatusActive,
	}, nil
}
