package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plan-pricing/core/determinism"
	"plan-pricing/internal/errors"
)

// LineItem is the priced outcome of a single component
type LineItem struct {
	ComponentID   uuid.UUID       `json:"componentId" validate:"required"`
	ComponentName string          `json:"componentName"`
	ComponentType ComponentType   `json:"componentType" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gte=0"`
	UnitPrice     decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	Amount        decimal.Decimal `json:"amount" validate:"gte=0"`
	// Description is generated for humans and never used to re-derive Amount.
	Description string `json:"description"`
}

// IdempotencyComponents is the composite key a ledger uses to apply a given
// tenant/version/period result at most once.
type IdempotencyComponents struct {
	TenantID           uuid.UUID `json:"tenantId" validate:"required"`
	PlanVersionID      uuid.UUID `json:"planVersionId" validate:"required"`
	BillingPeriodStart time.Time `json:"billingPeriodStart" validate:"required"`
	BillingPeriodEnd   time.Time `json:"billingPeriodEnd" validate:"required"`
}

var idempotencyKeys = determinism.NewIDGenerator("pricing-result")

// Key collapses the components into a stable string. Equal instants in
// different time zones yield the same key.
func (k IdempotencyComponents) Key() string {
	return string(idempotencyKeys.Generate(
		k.TenantID.String(),
		k.PlanVersionID.String(),
		determinism.Instant(k.BillingPeriodStart),
		determinism.Instant(k.BillingPeriodEnd),
	))
}

// Result is the ledger-ready outcome of evaluating a plan version.
// Payment, tax and discounts are applied downstream of it.
type Result struct {
	TenantID              uuid.UUID             `json:"tenantId" validate:"required"`
	PricingVersionID      uuid.UUID             `json:"pricingVersionId" validate:"required"`
	PlanID                uuid.UUID             `json:"planId" validate:"required"`
	Currency              string                `json:"currency" validate:"len=3"`
	TotalAmount           decimal.Decimal       `json:"totalAmount" validate:"gte=0"`
	LineItems             []LineItem            `json:"lineItems" validate:"dive"`
	EvaluationTimestamp   time.Time             `json:"evaluationTimestamp" validate:"required"`
	BillingPeriodStart    time.Time             `json:"billingPeriodStart" validate:"required"`
	BillingPeriodEnd      time.Time             `json:"billingPeriodEnd" validate:"required"`
	IdempotencyComponents IdempotencyComponents `json:"idempotencyComponents"`
}

// Validate checks the result shape and its internal consistency: the total
// must equal the exact sum of line item amounts and the idempotency
// components must describe this result.
func (r *Result) Validate() error {
	if err := checkStruct(r); err != nil {
		return err
	}

	sum := decimal.Zero
	for _, item := range r.LineItems {
		sum = sum.Add(item.Amount)
	}
	if !sum.Equal(r.TotalAmount) {
		return errors.Validationf("totalAmount", "is %s but line items sum to %s", r.TotalAmount, sum)
	}

	key := r.IdempotencyComponents
	switch {
	case key.TenantID != r.TenantID:
		return errors.Validation("idempotencyComponents.tenantId", "does not match tenantId")
	case key.PlanVersionID != r.PricingVersionID:
		return errors.Validation("idempotencyComponents.planVersionId", "does not match pricingVersionId")
	case !key.BillingPeriodStart.Equal(r.BillingPeriodStart):
		return errors.Validation("idempotencyComponents.billingPeriodStart", "does not match billingPeriodStart")
	case !key.BillingPeriodEnd.Equal(r.BillingPeriodEnd):
		return errors.Validation("idempotencyComponents.billingPeriodEnd", "does not match billingPeriodEnd")
	}

	return nil
}

// IdempotencyKey is shorthand for r.IdempotencyComponents.Key()
func (r *Result) IdempotencyKey() string {
	return r.IdempotencyComponents.Key()
}
