package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ocrch/engine/internal/apierr"
)

// etherscanRateLimit is the free-tier Etherscan V2 ceiling (5 req/s),
// throttled client-side so a burst of worker ticks across many
// (chain, token) pairs doesn't trip the API's own 429s.
const etherscanRateLimit = 5

// explorerTimeout is the 30s HTTP deadline spec §5 names for every
// explorer and webhook call.
const explorerTimeout = 30 * time.Second

// EVMExplorer fetches ERC-20 token transfers from an Etherscan-V2-style
// API (spec §6.2), mirroring the teacher's EndpointRequester shape
// (interfaces/rpc.go: a constructor returning an interface backed by a
// small struct holding the base URI) generalized from JSON-RPC to a
// plain REST GET.
type EVMExplorer interface {
	// TokenTransfers fetches one page of ERC-20 transfers to wallet for
	// the given chain/contract starting at startBlock.
	TokenTransfers(ctx context.Context, chainID int64, contract, wallet string, startBlock int64, page int) ([]EVMTransferItem, error)
	// TransactionBlockNumber resolves a starting_tx hash to its block
	// number, for the cursor fallback chain (spec §4.2).
	TransactionBlockNumber(ctx context.Context, chainID int64, txHash string) (int64, error)
}

// EVMTransferItem is one row of an Etherscan `tokentx` result array.
type EVMTransferItem struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
}

type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type evmExplorer struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewEVMExplorer constructs an EVMExplorer against baseURL (the
// Etherscan V2 multi-chain endpoint spec §6.2 names) using apiKey.
func NewEVMExplorer(baseURL, apiKey string) EVMExplorer {
	return &evmExplorer{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: explorerTimeout},
		limiter: rate.NewLimiter(rate.Limit(etherscanRateLimit), etherscanRateLimit),
	}
}

func (e *evmExplorer) TokenTransfers(ctx context.Context, chainID int64, contract, wallet string, startBlock int64, page int) ([]EVMTransferItem, error) {
	q := url.Values{
		"chainid":         {strconv.FormatInt(chainID, 10)},
		"module":          {"account"},
		"action":          {"tokentx"},
		"contractaddress": {contract},
		"address":         {wallet},
		"startblock":      {strconv.FormatInt(startBlock, 10)},
		"page":            {strconv.Itoa(page)},
		"offset":          {"100"},
		"sort":            {"asc"},
		"apiKey":          {e.apiKey},
	}
	env, err := e.get(ctx, q)
	if err != nil {
		return nil, err
	}
	var items []EVMTransferItem
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &items); err != nil {
			return nil, apierr.Wrap(apierr.KindPermanent, "parsing tokentx result", err)
		}
	}
	return items, nil
}

func (e *evmExplorer) TransactionBlockNumber(ctx context.Context, chainID int64, txHash string) (int64, error) {
	q := url.Values{
		"chainid": {strconv.FormatInt(chainID, 10)},
		"module":  {"proxy"},
		"action":  {"eth_getTransactionByHash"},
		"txhash":  {txHash},
		"apiKey":  {e.apiKey},
	}
	env, err := e.get(ctx, q)
	if err != nil {
		return 0, err
	}
	var tx struct {
		BlockNumber string `json:"blockNumber"`
	}
	if err := json.Unmarshal(env.Result, &tx); err != nil {
		return 0, apierr.Wrap(apierr.KindPermanent, "parsing eth_getTransactionByHash result", err)
	}
	blockNum, err := strconv.ParseInt(trimHexPrefix(tx.BlockNumber), 16, 64)
	if err != nil {
		return 0, apierr.Wrap(apierr.KindPermanent, "parsing hex block number", err)
	}
	return blockNum, nil
}

func (e *evmExplorer) get(ctx context.Context, q url.Values) (*etherscanEnvelope, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, apierr.Wrap(apierr.KindTransient, "waiting for explorer rate limiter", err)
	}

	reqURL := e.baseURL + "/api?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "building explorer request", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindTransient, "explorer request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apierr.New(apierr.KindTransient, "explorer rate-limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierr.New(apierr.KindTransient, fmt.Sprintf("explorer returned HTTP %d", resp.StatusCode))
	}

	var env etherscanEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, apierr.Wrap(apierr.KindPermanent, "decoding explorer response", err)
	}
	if env.Status != "1" {
		return nil, apierr.New(apierr.KindPermanent, fmt.Sprintf("explorer API error: %s", env.Message))
	}
	return &env, nil
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
