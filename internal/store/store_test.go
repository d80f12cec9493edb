package store

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
	"github.com/ocrch/engine/internal/entity"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{DB: sqlx.NewDb(db, "postgres")}, mock
}

func TestCreateOrderInsertsAllColumns(t *testing.T) {
	s, mock := newTestStore(t)
	o := &entity.Order{
		OrderID:         uuid.New(),
		MerchantOrderID: "merchant-1",
		Amount:          decimal.RequireFromString("10.50"),
		Status:          entity.OrderPending,
		CreatedAt:       time.Now(),
		WebhookURL:      "https://merchant.example/webhook",
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_records")).
		WithArgs(o.OrderID, o.MerchantOrderID, "10.5", o.Status, o.CreatedAt, o.WebhookURL).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.CreateOrder(context.Background(), o))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderReturnsNotFound(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM order_records WHERE order_id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := s.GetOrder(context.Background(), id)
	require.ErrorIs(t, err, apierr.ErrOrderNotFound)
}

func TestMarkOrdersPaidNoopOnEmpty(t *testing.T) {
	s, mock := newTestStore(t)
	require.NoError(t, s.MarkOrdersPaid(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
