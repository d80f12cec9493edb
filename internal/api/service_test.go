package api

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/apierr"
	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/store"
)

func newMockedService(t *testing.T) (*coreService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := &store.Store{DB: sqlx.NewDb(db, "postgres")}
	cfg := config.NewSharedConfig(&config.File{
		Wallets: []config.WalletEntry{
			{Blockchain: "ethereum", Address: "0xWALLET", EnabledCoins: []string{"USDT"}},
		},
	})
	svc := &coreService{
		store:                   st,
		config:                  cfg,
		pendingDepositAllocated: make(chan events.PendingDepositChanged, 1),
		clock:                   func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	return svc, mock
}

func TestCreateOrderInsertsPendingOrder(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_records")).WillReturnResult(sqlmock.NewResult(1, 1))

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		MerchantOrderID: "m-1", Amount: decimal.RequireFromString("10"), WebhookURL: "https://merchant.example/hook",
	})
	require.NoError(t, err)
	require.Equal(t, "pending", string(o.Status))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestPaymentRejectsUnknownWallet(t *testing.T) {
	svc, mock := newMockedService(t)
	orderID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_records")).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "merchant_order_id", "amount", "status", "created_at", "webhook_url",
			"webhook_retry_count", "webhook_last_tried_at", "webhook_success_at"}).
			AddRow(orderID, "m-1", "10", "pending", time.Now(), "", 0, nil, nil))

	_, err := svc.RequestPayment(context.Background(), orderID, RequestPaymentRequest{Blockchain: "tron", Stablecoin: "USDT"})
	require.ErrorIs(t, err, apierr.ErrNoWalletForChain)
}
