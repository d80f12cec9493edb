// Package api describes the HTTP surface spec §6.1 enumerates — the
// router, request extractors, and response encoding are out of scope
// (spec §1 Non-goals) and are not implemented here; this package carries
// the request/response shapes, the Service interface a router would
// dispatch to, and its store-backed implementation (service.go).
package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ocrch/engine/internal/entity"
)

// CreateOrderRequest is the Service API's order-creation body.
type CreateOrderRequest struct {
	MerchantOrderID string          `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	WebhookURL      string          `json:"webhook_url"`
}

// OrderResponse is the snapshot every order-facing endpoint returns.
type OrderResponse struct {
	OrderID         uuid.UUID `json:"order_id"`
	MerchantOrderID string    `json:"merchant_order_id"`
	Status          string    `json:"status"`
	Amount          string    `json:"amount"`
	CreatedAt       string    `json:"created_at"`
}

// ChainEntry is one element of the User API's /chains listing.
type ChainEntry struct {
	Blockchain    string `json:"blockchain"`
	Stablecoin    string `json:"stablecoin"`
	WalletAddress string `json:"wallet_address"`
}

// RequestPaymentRequest is the User API's payment-allocation body.
type RequestPaymentRequest struct {
	Blockchain string `json:"blockchain"`
	Stablecoin string `json:"stablecoin"`
}

// PaymentResponse is returned by a successful payment allocation.
type PaymentResponse struct {
	WalletAddress string `json:"wallet_address"`
	Amount        string `json:"amount"`
}

// StatusUpdateFrame is the WebSocket frame shape spec §6.1 names for
// `/api/v1/user/orders/{id}/ws`.
type StatusUpdateFrame struct {
	Type  string        `json:"type"`
	Order OrderResponse `json:"order"`
}

// HealthResponse is the body `/health` returns.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Service is the core business surface a router dispatches HTTP requests
// to, after its own signature verification and body decoding (both out
// of scope here). Errors the service classifies itself are
// *apierr.Error, whose Kind the router maps to a status code; OrderStatus
// returns the store's error as is, so a store failure there reaches the
// caller unwrapped and apierr.KindOf reports it as KindInternal.
type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*entity.Order, error)
	OrderStatus(ctx context.Context, orderID uuid.UUID) (*entity.Order, error)
	Chains(ctx context.Context) []ChainEntry
	RequestPayment(ctx context.Context, orderID uuid.UUID, req RequestPaymentRequest) (*PaymentResponse, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error)
}

// ToOrderResponse converts the domain entity to its wire shape.
func ToOrderResponse(o *entity.Order) OrderResponse {
	return OrderResponse{
		OrderID:         o.OrderID,
		MerchantOrderID: o.MerchantOrderID,
		Status:          string(o.Status),
		Amount:          o.Amount.String(),
		CreatedAt:       o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
