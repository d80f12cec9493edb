package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/ocrch/engine/internal/apierr"
)

const tronBaseURL = "https://apilist.tronscanapi.com"

// tronscanRateLimit is tronscan's documented public ceiling (max 5
// req/s per key), throttled client-side for the same reason as the
// EVM explorer.
const tronscanRateLimit = 5

// TronExplorer fetches TRC-20 token transfers from tronscan (spec §6.2).
type TronExplorer interface {
	TokenTransfers(ctx context.Context, contract, toAddress string, startTimestamp int64, start int) (TronPage, error)
}

// TronTransferItem is one row of tronscan's token_transfers array.
type TronTransferItem struct {
	TransactionHash string `json:"transaction_id"`
	FromAddress     string `json:"from_address"`
	ToAddress       string `json:"to_address"`
	Quant           string `json:"quant"`
	BlockTimestamp  int64  `json:"block_ts"`
	Block           int64  `json:"block"`
	Confirmed       bool   `json:"confirmed"`
}

// TronPage is one page of tronscan results plus the total range count
// the worker pages against (spec §4.2 "keep paging until ... the
// running count reaches the reported rangeTotal").
type TronPage struct {
	RangeTotal     int                `json:"rangeTotal"`
	TokenTransfers []TronTransferItem `json:"token_transfers"`
}

type tronExplorer struct {
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewTronExplorer constructs a TronExplorer authenticating with apiKey
// via the TRON-PRO-API-KEY header.
func NewTronExplorer(apiKey string) TronExplorer {
	return &tronExplorer{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: explorerTimeout},
		limiter: rate.NewLimiter(rate.Limit(tronscanRateLimit), tronscanRateLimit),
	}
}

func (e *tronExplorer) TokenTransfers(ctx context.Context, contract, toAddress string, startTimestamp int64, start int) (TronPage, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return TronPage{}, apierr.Wrap(apierr.KindTransient, "waiting for tron explorer rate limiter", err)
	}

	q := url.Values{
		"contract_address": {contract},
		"toAddress":        {toAddress},
		"start_timestamp":  {strconv.FormatInt(startTimestamp, 10)},
		"start":            {strconv.Itoa(start)},
		"limit":            {"200"},
	}
	reqURL := tronBaseURL + "/api/token_trc20/transfers?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return TronPage{}, apierr.Wrap(apierr.KindInternal, "building tron explorer request", err)
	}
	req.Header.Set("TRON-PRO-API-KEY", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return TronPage{}, apierr.Wrap(apierr.KindTransient, "tron explorer request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return TronPage{}, apierr.New(apierr.KindTransient, "tron explorer rate-limited, retry after 5s")
	}
	if resp.StatusCode != http.StatusOK {
		return TronPage{}, apierr.New(apierr.KindTransient, "tron explorer returned non-200")
	}

	var page TronPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return TronPage{}, apierr.Wrap(apierr.KindPermanent, "decoding tron explorer response", err)
	}
	return page, nil
}
