// Package admin describes the admin HTTP surface spec §6.1 names
// (`/api/v1/admin/*`): listing, force-paid, and resend-webhook. Auth
// (the `Ocrch-Admin-Authorization` header compare) and routing are out
// of scope (spec §1 Non-goals); this package is the Service the router
// would call after verifying the admin secret.
package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/store"
)

// Service is the admin business surface.
type Service interface {
	ListOrders(ctx context.Context, status *entity.OrderStatus, limit int) ([]*entity.Order, error)
	ForcePaid(ctx context.Context, orderID uuid.UUID) (*entity.Order, error)
	ResendWebhook(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	store *store.Store
}

// NewService constructs the admin Service over st.
func NewService(st *store.Store) Service {
	return &service{store: st}
}

func (s *service) ListOrders(ctx context.Context, status *entity.OrderStatus, limit int) ([]*entity.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListOrders(ctx, status, limit)
}

func (s *service) ForcePaid(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	if err := s.store.ForcePaid(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.GetOrder(ctx, orderID)
}

func (s *service) ResendWebhook(ctx context.Context, orderID uuid.UUID) error {
	return s.store.ResetWebhookForResend(ctx, orderID)
}
