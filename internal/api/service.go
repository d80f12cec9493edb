package api

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ocrch/engine/internal/apierr"
	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/store"
)

// coreService is the concrete Service a router would hold — the actual
// business logic behind spec §6.1's endpoints, as distinct from the
// (out-of-scope) HTTP plumbing that decodes requests into it.
type coreService struct {
	store  *store.Store
	config *config.SharedConfig
	// pendingDepositAllocated notifies the PoolingManager a fresh
	// deposit was allocated, the spec §4.1 trigger for "wake sooner".
	pendingDepositAllocated chan<- events.PendingDepositChanged
	clock                   func() time.Time
}

// NewService constructs the core Service backing spec §6.1's handlers.
func NewService(st *store.Store, cfg *config.SharedConfig, pendingDepositAllocated chan<- events.PendingDepositChanged) Service {
	return &coreService{store: st, config: cfg, pendingDepositAllocated: pendingDepositAllocated, clock: time.Now}
}

func (s *coreService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*entity.Order, error) {
	id, err := entity.NewOrderID()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "minting order id", err)
	}
	o := &entity.Order{
		OrderID:         id,
		MerchantOrderID: req.MerchantOrderID,
		Amount:          req.Amount,
		Status:          entity.OrderPending,
		CreatedAt:       s.clock(),
		WebhookURL:      req.WebhookURL,
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "creating order", err)
	}
	return o, nil
}

func (s *coreService) OrderStatus(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *coreService) Chains(ctx context.Context) []ChainEntry {
	wallets := s.config.Wallets()
	out := make([]ChainEntry, 0, len(wallets))
	for _, w := range wallets {
		for _, coin := range w.Coins() {
			out = append(out, ChainEntry{
				Blockchain:    string(w.Chain()),
				Stablecoin:    string(coin),
				WalletAddress: w.Address,
			})
		}
	}
	return out
}

// RequestPayment allocates a pending deposit against the wallet serving
// (blockchain, stablecoin) for the exact order amount (spec §4.1's
// "allocate a pending deposit"). It rejects an order that is no longer
// pending (already paid/expired/cancelled) or a chain/coin combination
// with no configured wallet.
func (s *coreService) RequestPayment(ctx context.Context, orderID uuid.UUID, req RequestPaymentRequest) (*PaymentResponse, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanAcceptPayment() {
		return nil, apierr.ErrOrderNotPending
	}

	chain := entity.Blockchain(strings.ToLower(req.Blockchain))
	token := entity.Stablecoin(strings.ToUpper(req.Stablecoin))
	wallet, ok := s.config.WalletFor(chain, token)
	if !ok {
		return nil, apierr.ErrNoWalletForChain
	}

	now := s.clock()
	deposit := &entity.PendingDeposit{
		OrderID:       orderID,
		Chain:         chain,
		Token:         token,
		WalletAddress: wallet.Address,
		Value:         order.Amount,
		StartedAt:     now,
		LastScannedAt: now,
	}
	if err := s.store.CreatePendingDeposit(ctx, deposit); err != nil {
		return nil, apierr.Wrap(apierr.KindValidation, "allocating pending deposit", err)
	}

	select {
	case s.pendingDepositAllocated <- events.PendingDepositChanged{Key: entity.PoolKey{Chain: chain, Token: token}, At: now}:
	default:
	}

	return &PaymentResponse{WalletAddress: wallet.Address, Amount: order.Amount.String()}, nil
}

func (s *coreService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderPending {
		return nil, apierr.ErrOrderNotPending
	}
	if err := s.store.CancelOrder(ctx, orderID); err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "cancelling order", err)
	}
	order.Status = entity.OrderCancelled
	return order, nil
}
