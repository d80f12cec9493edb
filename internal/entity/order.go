package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an Order (spec §3).
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderExpired   OrderStatus = "expired"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether status is one that never transitions further.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderExpired || s == OrderCancelled
}

// Order is a merchant-created amount owed, identified by a time-ordered
// server UUID plus the merchant's own order id (spec §3).
type Order struct {
	OrderID         uuid.UUID
	MerchantOrderID string
	Amount          decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
	WebhookURL      string

	WebhookRetryCount  int
	WebhookLastTriedAt *time.Time
	WebhookSuccessAt   *time.Time
}

// NewOrderID mints a time-ordered order id. spec §3 calls for a
// time-ordered UUID; UUIDv7 embeds a millisecond timestamp in its most
// significant bits so lexical and chronological order coincide.
func NewOrderID() (uuid.UUID, error) {
	return uuid.NewV7()
}

// CanAcceptPayment reports whether the order may still receive a
// PendingDeposit allocation (spec §4.3 commit step only ever pays a
// pending order).
func (o *Order) CanAcceptPayment() bool {
	return o.Status == OrderPending
}

// WebhookExhausted reports whether the retry budget spec §4.4 defines
// (12 attempts, ≈68 minutes cumulative) has been spent.
func (o *Order) WebhookExhausted() bool {
	return o.WebhookRetryCount >= MaxWebhookRetries
}

// MaxWebhookRetries is the retry ceiling from spec §4.4 and §8 invariant 4.
const MaxWebhookRetries = 12
