package project

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timebill/backend/internal/domain/shared"
)

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusOnHold   ProjectStatus = "on_hold"
	ProjectStatusArchived ProjectStatus = "archived"
)

// String returns the string representation of the status
func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusOnHold, ProjectStatusArchived:
		return true
	default:
		return false
	}
}

// Project is a billable engagement that time entries are recorded against.
// Billing reads projects for name display, client linkage, and filter scoping.
type Project struct {
	shared.BaseAggregateRoot
	TenantID  uuid.UUID
	ClientID  *uuid.UUID
	Name      string
	Code      string
	Status    ProjectStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// NewProject creates a new active project
func NewProject(tenantID uuid.UUID, name, code string) (*Project, error) {
	name = strings.TrimSpace(name)
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Project name is required")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Project code is required")
	}

	return &Project{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		Name:              name,
		Code:              code,
		Status:            ProjectStatusActive,
	}, nil
}

// WithClient links the project to a client
func (p *Project) WithClient(clientID uuid.UUID) *Project {
	p.ClientID = &clientID
	return p
}

// WithSchedule sets the planned start and end dates
func (p *Project) WithSchedule(start, end time.Time) *Project {
	p.StartDate = &start
	p.EndDate = &end
	return p
}

// ClientOrNil returns the linked client ID, or uuid.Nil when unlinked
func (p *Project) ClientOrNil() uuid.UUID {
	if p.ClientID == nil {
		return uuid.Nil
	}
	return *p.ClientID
}
