package admin

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/apierr"
	"github.com/ocrch/engine/internal/store"
)

func newTestService(t *testing.T) (Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(&store.Store{DB: sqlx.NewDb(db, "postgres")}), mock
}

func TestForcePaidPropagatesNotPendingError(t *testing.T) {
	svc, mock := newTestService(t)
	orderID := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_records SET status = 'paid'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.ForcePaid(context.Background(), orderID)
	require.ErrorIs(t, err, apierr.ErrOrderNotPending)
}

func TestListOrdersClampsOversizedLimit(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_records ORDER BY created_at DESC LIMIT")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "merchant_order_id", "amount", "status", "created_at", "webhook_url",
			"webhook_retry_count", "webhook_last_tried_at", "webhook_success_at"}))

	_, err := svc.ListOrders(context.Background(), nil, 10000)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
