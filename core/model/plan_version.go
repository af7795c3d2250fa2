package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"plan-pricing/core/determinism"
	"plan-pricing/internal/errors"
)

// PlanVersionDraft is the mutable, caller-owned form of a plan version.
// It becomes authoritative only once passed through Publish.
type PlanVersionDraft struct {
	ID            uuid.UUID              `json:"id" validate:"required"`
	PlanID        uuid.UUID              `json:"planId" validate:"required"`
	TenantID      uuid.UUID              `json:"tenantId" validate:"required"`
	Version       int                    `json:"version" validate:"gt=0"`
	Currency      string                 `json:"currency" validate:"len=3"`
	Components    []Component            `json:"components" validate:"min=1"`
	EffectiveFrom time.Time              `json:"effectiveFrom" validate:"required"`
	EffectiveTo   *time.Time             `json:"effectiveTo,omitempty"`
	CreatedAt     time.Time              `json:"createdAt" validate:"required"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// PlanVersion is a published, immutable plan version.
//
// PlanVersion is IMMUTABLE after Publish. All state is unexported and every
// accessor hands out copies, so a published version cannot be changed
// through this package's API. It is safe to share between goroutines.
type PlanVersion struct {
	id            uuid.UUID
	planID        uuid.UUID
	tenantID      uuid.UUID
	version       int
	currency      string
	components    []Component
	effectiveFrom time.Time
	effectiveTo   *time.Time
	createdAt     time.Time
	metadata      map[string]interface{}

	contentHash determinism.ContentHash

	// Immutability flag
	sealed bool
}

// Publish validates a draft and seals it into a PlanVersion. The draft is
// deep-copied; later changes to it do not reach the published version.
func Publish(draft PlanVersionDraft) (*PlanVersion, error) {
	if err := checkStruct(draft); err != nil {
		return nil, err
	}

	components, err := normalizeComponents(draft.Components)
	if err != nil {
		return nil, err
	}
	metadata, err := freezeMetadata(draft.Metadata)
	if err != nil {
		return nil, err
	}

	pv := &PlanVersion{
		id:            draft.ID,
		planID:        draft.PlanID,
		tenantID:      draft.TenantID,
		version:       draft.Version,
		currency:      draft.Currency,
		components:    components,
		effectiveFrom: draft.EffectiveFrom,
		effectiveTo:   cloneTime(draft.EffectiveTo),
		createdAt:     draft.CreatedAt,
		metadata:      metadata,
	}

	hash, err := determinism.HashJSON(pv.Draft())
	if err != nil {
		return nil, errors.Invariant("plan version could not be hashed", err)
	}
	pv.contentHash = hash

	// Seal the version
	pv.sealed = true

	return pv, nil
}

// AssertImmutable fails with an invariant violation unless pv came out of
// Publish and its content still matches the hash taken at publish time.
func AssertImmutable(pv *PlanVersion) error {
	if pv == nil {
		return errors.Invariant("plan version is nil", nil)
	}
	if !pv.IsSealed() {
		return errors.Invariant("plan version must be immutable: use model.Publish", nil)
	}
	if !pv.Verify() {
		return errors.Invariant("plan version content no longer matches its hash", nil).
			WithContext("plan_version_id", pv.id.String())
	}
	return nil
}

// IsSealed reports whether pv was produced by Publish
func (pv *PlanVersion) IsSealed() bool { return pv != nil && pv.sealed }

func (pv *PlanVersion) ID() uuid.UUID { return pv.id }

func (pv *PlanVersion) PlanID() uuid.UUID { return pv.planID }

func (pv *PlanVersion) TenantID() uuid.UUID { return pv.tenantID }

func (pv *PlanVersion) Version() int { return pv.version }

func (pv *PlanVersion) Currency() string { return pv.currency }

func (pv *PlanVersion) EffectiveFrom() time.Time { return pv.effectiveFrom }

func (pv *PlanVersion) EffectiveTo() *time.Time { return cloneTime(pv.effectiveTo) }

func (pv *PlanVersion) CreatedAt() time.Time { return pv.createdAt }

// ContentHash returns the SHA-256 of the version taken at publish time
func (pv *PlanVersion) ContentHash() determinism.ContentHash { return pv.contentHash }

// Len returns the number of components
func (pv *PlanVersion) Len() int { return len(pv.components) }

// Components returns deep copies of the components in plan order
func (pv *PlanVersion) Components() []Component {
	out := make([]Component, len(pv.components))
	for i, c := range pv.components {
		out[i] = c.clone()
	}
	return out
}

// Metadata returns a deep copy of the version metadata
func (pv *PlanVersion) Metadata() map[string]interface{} {
	return cloneMetadata(pv.metadata)
}

// IsEffectiveAt reports whether the version applies at instant t:
// effectiveFrom <= t and, when set, t < effectiveTo.
func (pv *PlanVersion) IsEffectiveAt(t time.Time) bool {
	if t.Before(pv.effectiveFrom) {
		return false
	}
	return pv.effectiveTo == nil || t.Before(*pv.effectiveTo)
}

// Draft returns an editable deep copy, the starting point for superseding
// this version with a new one.
func (pv *PlanVersion) Draft() PlanVersionDraft {
	return PlanVersionDraft{
		ID:            pv.id,
		PlanID:        pv.planID,
		TenantID:      pv.tenantID,
		Version:       pv.version,
		Currency:      pv.currency,
		Components:    pv.Components(),
		EffectiveFrom: pv.effectiveFrom,
		EffectiveTo:   cloneTime(pv.effectiveTo),
		CreatedAt:     pv.createdAt,
		Metadata:      pv.Metadata(),
	}
}

// Verify recomputes the content hash and compares it to the sealed one
func (pv *PlanVersion) Verify() bool {
	hash, err := determinism.HashJSON(pv.Draft())
	if err != nil {
		return false
	}
	return hash == pv.contentHash
}

// MarshalJSON encodes the version in its draft wire form
func (pv *PlanVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(pv.Draft())
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
