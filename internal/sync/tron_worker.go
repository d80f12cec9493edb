package sync

import (
	"context"
	"time"

	"github.com/ocrch/engine/internal/apierr"
	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/logging"
	"github.com/ocrch/engine/internal/store"
)

// TronWorker is the SyncWorker variant for TRC-20 (spec §4.2).
type TronWorker struct {
	token    entity.Stablecoin
	explorer TronExplorer
	store    *store.Store
	config   *config.SharedConfig
	log      logging.Logger
	clock    func() time.Time
}

// NewTronWorker constructs a TronWorker for token.
func NewTronWorker(token entity.Stablecoin, explorer TronExplorer, st *store.Store, cfg *config.SharedConfig) *TronWorker {
	return &TronWorker{
		token:    token,
		explorer: explorer,
		store:    st,
		config:   cfg,
		log:      logging.ForChainToken(logging.WithComponent("sync"), string(entity.Tron), string(token)),
		clock:    time.Now,
	}
}

func (w *TronWorker) Key() entity.PoolKey { return entity.PoolKey{Chain: entity.Tron, Token: w.token} }

// Tick mirrors EVMWorker.Tick but pages by start_timestamp + offset
// until a short page or the reported rangeTotal is reached (spec §4.2
// "Ingest").
func (w *TronWorker) Tick(ctx context.Context) (int, error) {
	key := w.Key()
	wallet, ok := w.config.WalletFor(entity.Tron, w.token)
	if !ok {
		w.log.Warn("no wallet configured for key, skipping tick")
		return 0, apierr.ErrNoWalletForChain
	}
	contract, ok := ResolveContract(key)
	if !ok {
		w.log.Error("no contract table entry for key")
		return 0, apierr.New(apierr.KindInternal, "no contract table entry")
	}

	startTS := w.resolveCursor(ctx)

	var allItems []TronTransferItem
	offset := 0
	for {
		page, err := w.explorer.TokenTransfers(ctx, contract.Address, wallet.Address, startTS, offset)
		if err != nil {
			w.log.Warn("explorer fetch failed", "offset", offset, "err", err)
			break
		}
		allItems = append(allItems, page.TokenTransfers...)
		offset += len(page.TokenTransfers)
		if len(page.TokenTransfers) < 200 || offset >= page.RangeTotal {
			break
		}
	}

	transfers := make([]*entity.Transfer, 0, len(allItems))
	for _, item := range allItems {
		t, err := normalizeTronItem(w.token, contract.Decimals, wallet.Address, item)
		if err != nil {
			w.log.Warn("unparsable transfer, abandoning tick", "hash", item.TransactionHash, "err", err)
			return 0, err
		}
		if t != nil {
			transfers = append(transfers, t)
		}
	}

	if len(transfers) == 0 {
		return 0, nil
	}
	inserted, err := w.store.InsertTransfersDeduped(ctx, entity.FamilyTRC20, transfers)
	if err != nil {
		w.log.Error("persisting transfers failed", "err", err)
		return 0, err
	}
	return inserted, nil
}

// resolveCursor implements spec §4.2's fallback chain for Tron: the
// sync-cursor view, else zero. Tronscan exposes no transaction-lookup
// endpoint equivalent to Etherscan's eth_getTransactionByHash, so a
// configured starting_tx cannot be resolved to a timestamp and is
// ignored for Tron wallets (falls straight through to zero).
func (w *TronWorker) resolveCursor(ctx context.Context) int64 {
	cursor, err := w.store.GetSyncCursor(ctx, w.Key(), w.clock())
	if err != nil {
		w.log.Warn("cursor resolution failed, starting from zero", "err", err)
		return 0
	}
	if cursor != nil && cursor.Timestamp != nil {
		return cursor.Timestamp.UnixMilli()
	}
	return 0
}

func normalizeTronItem(token entity.Stablecoin, decimals int32, wallet string, item TronTransferItem) (*entity.Transfer, error) {
	if entity.NormalizeAddress(item.ToAddress) != entity.NormalizeAddress(wallet) {
		return nil, nil
	}
	value, err := scaleRawValue(item.Quant, decimals)
	if err != nil {
		return nil, err
	}
	status := entity.TransferWaitingForMatch
	if !item.Confirmed {
		status = entity.TransferWaitingForConfirmation
	}
	return &entity.Transfer{
		Token:               token,
		FromAddress:         item.FromAddress,
		ToAddress:           item.ToAddress,
		TxnHash:             item.TransactionHash,
		Value:               value,
		BlockNumber:         item.Block,
		BlockTimestamp:      time.UnixMilli(item.BlockTimestamp).UTC(),
		BlockchainConfirmed: item.Confirmed,
		Status:              status,
	}, nil
}
