package model

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the tenant-owned header that plan versions hang off. Pricing
// lives on the versions; a plan only names and (de)activates them.
type Plan struct {
	ID          uuid.UUID              `json:"id" validate:"required"`
	TenantID    uuid.UUID              `json:"tenantId" validate:"required"`
	Name        string                 `json:"name" validate:"required"`
	Description string                 `json:"description,omitempty"`
	IsActive    bool                   `json:"isActive"`
	CreatedAt   time.Time              `json:"createdAt" validate:"required"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks the plan header shape
func (p Plan) Validate() error {
	return checkStruct(p)
}

// Clone returns a deep copy of the plan
func (p Plan) Clone() Plan {
	p.Metadata = cloneMetadata(p.Metadata)
	return p
}
