package types

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionPlan is an immutable catalog row. Plans are created by an
// administrative action and never deleted while referenced.
type SubscriptionPlan struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PriceCents   int64     `json:"price_cents"`
	DurationDays int       `json:"duration_days"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSubscription is one subscription period in the ledger. Rows are never
// physically deleted; a closed period (is_active = false) stays closed and
// reactivation always means a new row.
type UserSubscription struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	PlanID            uuid.UUID  `json:"plan_id"`
	PlanName          string     `json:"plan_name"`
	AmountCents       *int64     `json:"amount_cents,omitempty"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	IsActive          bool       `json:"is_active"`
	PaymentKey        *string    `json:"payment_key,omitempty"`
	OrderID           *string    `json:"order_id,omitempty"`
	NotifiedForExpiry *time.Time `json:"notified_for_expiry,omitempty"`
	LastNotifiedAt    *time.Time `json:"last_notified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CurrentlyActive reports whether the period is live at the given instant.
// The is_active flag alone is not enough: an expired row is flipped lazily,
// so consumers must also check end_date.
func (s *UserSubscription) CurrentlyActive(now time.Time) bool {
	return s.IsActive && s.EndDate.After(now)
}

// SubscriptionSnapshot is the caller-facing view of a subscription period.
type SubscriptionSnapshot struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	PlanID      uuid.UUID `json:"plan_id"`
	PlanName    string    `json:"plan_name"`
	Status      string    `json:"status"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	PaymentKey  string    `json:"payment_key,omitempty"`
	OrderID     string    `json:"order_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
}

const (
	SubscriptionStatusActive   = "ACTIVE"
	SubscriptionStatusInactive = "INACTIVE"
)

// NewSubscriptionSnapshot builds the caller-facing view from a ledger row.
// It always reflects the committed row's real fields, never defaults.
func NewSubscriptionSnapshot(sub *UserSubscription, now time.Time) *SubscriptionSnapshot {
	snap := &SubscriptionSnapshot{
		ID:        sub.ID,
		UserID:    sub.UserID,
		PlanID:    sub.PlanID,
		PlanName:  sub.PlanName,
		Status:    SubscriptionStatusInactive,
		StartDate: sub.StartDate,
		EndDate:   sub.EndDate,
	}
	if sub.CurrentlyActive(now) {
		snap.Status = SubscriptionStatusActive
	}
	if sub.PaymentKey != nil {
		snap.PaymentKey = *sub.PaymentKey
	}
	if sub.OrderID != nil {
		snap.OrderID = *sub.OrderID
	}
	if sub.AmountCents != nil {
		snap.AmountCents = *sub.AmountCents
	}
	return snap
}

// CreatePlanParams carries the fields for a new catalog plan.
type CreatePlanParams struct {
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	DurationDays int    `json:"duration_days"`
	Description  string `json:"description"`
}

// UpdatePlanParams uses pointers for partial updates. Price and description
// may change; duration of an existing plan stays fixed so settled periods
// remain explainable.
type UpdatePlanParams struct {
	Name        *string `json:"name,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateSubscriptionParams is the admin partial update of a user's current
// active period. Each field, when present, overwrites the column.
type UpdateSubscriptionParams struct {
	PlanID   *uuid.UUID `json:"plan_id,omitempty"`
	EndDate  *time.Time `json:"end_date,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// ConfirmPaymentRequest is the trusted payment confirmation payload. The plan
// is carried explicitly; it is never derived from the order id.
type ConfirmPaymentRequest struct {
	PlanID      uuid.UUID `json:"plan_id"`
	OrderID     string    `json:"order_id"`
	PaymentKey  string    `json:"payment_key"`
	AmountCents int64     `json:"amount_cents"`
}
