// Package catalog - Authoritative plan catalog
// Holds tenant-owned plans and their published versions.
// Versions are write-once: a published version is never replaced, only
// superseded by a newer one.
package catalog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
	"plan-pricing/internal/logging"
)

// planKey scopes a plan id to its tenant
type planKey struct {
	tenant uuid.UUID
	plan   uuid.UUID
}

// Catalog is an in-memory, tenant-scoped store of plans and published
// plan versions. It is safe for concurrent use.
type Catalog struct {
	mu sync.RWMutex

	plans    map[planKey]model.Plan
	versions map[uuid.UUID]*model.PlanVersion

	// Versions per plan, sorted by version number
	byPlan map[planKey][]*model.PlanVersion

	logger *zap.Logger
}

// Option configures a Catalog
type Option func(*Catalog)

// WithLogger sets the catalog logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty catalog
func New(opts ...Option) *Catalog {
	c := &Catalog{
		plans:    make(map[planKey]model.Plan),
		versions: make(map[uuid.UUID]*model.PlanVersion),
		byPlan:   make(map[planKey][]*model.PlanVersion),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterPlan adds a plan header. Registering the same plan id twice for
// a tenant is a conflict.
func (c *Catalog) RegisterPlan(p model.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := planKey{tenant: p.TenantID, plan: p.ID}
	if _, exists := c.plans[key]; exists {
		return errors.Conflict("plan", p.ID.String())
	}
	c.plans[key] = p.Clone()

	c.logger.Debug("registered plan",
		logging.Tenant(p.TenantID.String()),
		zap.String("plan_id", p.ID.String()),
		zap.String("name", p.Name),
	)
	return nil
}

// Plan returns the plan header registered for tenant
func (c *Catalog) Plan(tenant, planID uuid.UUID) (model.Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.plans[planKey{tenant: tenant, plan: planID}]
	if !ok {
		return model.Plan{}, errors.NotFound("plan", planID.String())
	}
	return p.Clone(), nil
}

// Plans returns every plan registered for tenant, ordered by name then id
func (c *Catalog) Plans(tenant uuid.UUID) []model.Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.Plan
	for key, p := range c.plans {
		if key.tenant == tenant {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Publish seals draft with model.Publish and stores the result
func (c *Catalog) Publish(draft model.PlanVersionDraft) (*model.PlanVersion, error) {
	pv, err := model.Publish(draft)
	if err != nil {
		return nil, err
	}
	if err := c.Add(pv); err != nil {
		return nil, err
	}
	return pv, nil
}

// Add stores an already published version. A version id that is already
// present, or a version number already used for the same plan, is a
// conflict. A plan header need not be registered first.
func (c *Catalog) Add(pv *model.PlanVersion) error {
	if err := model.AssertImmutable(pv); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.versions[pv.ID()]; exists {
		return errors.Conflict("plan version", pv.ID().String())
	}

	key := planKey{tenant: pv.TenantID(), plan: pv.PlanID()}
	for _, existing := range c.byPlan[key] {
		if existing.Version() == pv.Version() {
			return errors.Conflict("plan version", fmt.Sprintf("%s v%d", pv.PlanID(), pv.Version())).
				WithContext("existing_version_id", existing.ID().String())
		}
	}

	c.versions[pv.ID()] = pv
	versions := append(c.byPlan[key], pv)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version() < versions[j].Version()
	})
	c.byPlan[key] = versions

	c.logger.Info("published plan version",
		logging.Tenant(pv.TenantID().String()),
		logging.PlanVersion(pv.ID().String(), pv.Version()),
		zap.String("content_hash", pv.ContentHash().Hex()),
	)
	return nil
}

// Get returns a version by id. A version owned by another tenant is
// reported as not found.
func (c *Catalog) Get(tenant, versionID uuid.UUID) (*model.PlanVersion, error) {
	c.mu.RLock()
	pv, ok := c.versions[versionID]
	c.mu.RUnlock()

	if !ok || pv.TenantID() != tenant {
		return nil, errors.NotFound("plan version", versionID.String())
	}
	if err := model.AssertImmutable(pv); err != nil {
		return nil, err
	}
	return pv, nil
}

// Resolve returns the highest version of a plan effective at instant at.
// An inactive plan resolves to nothing.
func (c *Catalog) Resolve(tenant, planID uuid.UUID, at time.Time) (*model.PlanVersion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := planKey{tenant: tenant, plan: planID}
	if p, ok := c.plans[key]; ok && !p.IsActive {
		return nil, errors.NotFound("active plan", planID.String())
	}

	versions := c.byPlan[key]
	for i := len(versions) - 1; i >= 0; i-- {
		pv := versions[i]
		if !pv.IsEffectiveAt(at) {
			continue
		}
		if err := model.AssertImmutable(pv); err != nil {
			return nil, err
		}
		return pv, nil
	}

	return nil, errors.NotFound("plan version", fmt.Sprintf("%s effective at %s", planID, at.UTC().Format(time.RFC3339)))
}

// Versions returns every version of a plan in ascending version order
func (c *Catalog) Versions(tenant, planID uuid.UUID) []*model.PlanVersion {
	c.mu.RLock()
	defer c.mu.RUnlock()

	versions := c.byPlan[planKey{tenant: tenant, plan: planID}]
	out := make([]*model.PlanVersion, len(versions))
	copy(out, versions)
	return out
}

// All returns every stored version ordered by tenant, plan and version
func (c *Catalog) All() []*model.PlanVersion {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*model.PlanVersion, 0, len(c.versions))
	for _, pv := range c.versions {
		out = append(out, pv)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TenantID() != b.TenantID() {
			return a.TenantID().String() < b.TenantID().String()
		}
		if a.PlanID() != b.PlanID() {
			return a.PlanID().String() < b.PlanID().String()
		}
		return a.Version() < b.Version()
	})
	return out
}

// Stats returns catalog statistics
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Plans:       len(c.plans),
		Versions:    len(c.versions),
		ByComponent: make(map[model.ComponentType]int),
	}
	tenants := make(map[uuid.UUID]struct{})
	for _, pv := range c.versions {
		tenants[pv.TenantID()] = struct{}{}
		for _, comp := range pv.Components() {
			stats.ByComponent[comp.Type()]++
		}
	}
	stats.Tenants = len(tenants)
	return stats
}

// Stats holds catalog statistics
type Stats struct {
	Tenants     int
	Plans       int
	Versions    int
	ByComponent map[model.ComponentType]int
}
