package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/logging"
	"github.com/ocrch/engine/internal/signature"
	"github.com/ocrch/engine/internal/store"
)

func newTestSender(t *testing.T) *Sender {
	t.Helper()
	return &Sender{
		config: config.NewSharedConfig(&config.File{}),
		client: http.DefaultClient,
		log:    logging.WithComponent("webhook-test"),
		clock:  func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestPostSignedSetsVerifiableSignatureHeader(t *testing.T) {
	secret := []byte("merchant-secret")
	var gotHeader string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(signature.SignatureHeader)
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestSender(t)
	ok := s.postSigned(context.Background(), srv.URL, secret, OrderPaidPayload{OrderID: "abc", Status: "paid"})
	require.True(t, ok)
	require.NoError(t, signature.VerifyBody(secret, gotHeader, gotBody, s.clock()))
}

func TestPostSignedReturnsFalseOnNonTwoXX(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestSender(t)
	ok := s.postSigned(context.Background(), srv.URL, []byte("secret"), OrderPaidPayload{})
	require.False(t, ok)
}

func TestAttemptOrderWebhookSendsRealStatusAndEventType(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_records SET webhook_success_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := newTestSender(t)
	s.store = &store.Store{DB: sqlx.NewDb(db, "postgres")}
	s.config = config.NewSharedConfig(&config.File{
		Merchant: config.MerchantSection{WebhookURL: srv.URL, Secret: "merchant-secret"},
	})

	order := &entity.Order{
		OrderID:         uuid.New(),
		MerchantOrderID: "m-1",
		Status:          entity.OrderExpired,
		Amount:          decimal.RequireFromString("10"),
	}
	s.attemptOrderWebhook(context.Background(), order)
	require.NoError(t, mock.ExpectationsWereMet())

	var payload OrderPaidPayload
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Equal(t, "order_status_changed", payload.EventType)
	require.Equal(t, "expired", payload.Status)
	require.NotZero(t, payload.Timestamp)
}
