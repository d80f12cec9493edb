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

// chainIDs maps each supported EVM chain to the numeric chain-id the
// Etherscan V2 API's `chainid` parameter expects.
var chainIDs = map[entity.Blockchain]int64{
	entity.Ethereum:    1,
	entity.Polygon:     137,
	entity.Base:        8453,
	entity.ArbitrumOne: 42161,
	entity.Linea:       59144,
	entity.Optimism:    10,
	entity.AvalancheC:  43114,
}

// EVMWorker is the SyncWorker variant for ERC-20-family chains
// (spec §4.2).
type EVMWorker struct {
	key      entity.PoolKey
	explorer EVMExplorer
	store    *store.Store
	config   *config.SharedConfig
	log      logging.Logger
	clock    func() time.Time
}

// NewEVMWorker constructs an EVMWorker for key, fetching through
// explorer and persisting through st.
func NewEVMWorker(key entity.PoolKey, explorer EVMExplorer, st *store.Store, cfg *config.SharedConfig) *EVMWorker {
	return &EVMWorker{
		key:      key,
		explorer: explorer,
		store:    st,
		config:   cfg,
		log:      logging.ForChainToken(logging.WithComponent("sync"), string(key.Chain), string(key.Token)),
		clock:    time.Now,
	}
}

func (w *EVMWorker) Key() entity.PoolKey { return w.key }

// Tick runs one fetch-and-persist pass (spec §4.2 "Ingest").
// Failure semantics: a rate-limit or transport error from the explorer
// is logged and ends paging; transfers from pages already fetched are
// still persisted and the next tick resumes from the cursor. A parse
// error abandons the whole tick before anything is written, and a
// failed insert leaves no partial DB mutation, since
// InsertTransfersDeduped runs inside its own transaction.
func (w *EVMWorker) Tick(ctx context.Context) (int, error) {
	wallet, ok := w.config.WalletFor(w.key.Chain, w.key.Token)
	if !ok {
		w.log.Warn("no wallet configured for key, skipping tick")
		return 0, apierr.ErrNoWalletForChain
	}
	contract, ok := ResolveContract(w.key)
	if !ok {
		w.log.Error("no contract table entry for key")
		return 0, apierr.New(apierr.KindInternal, "no contract table entry")
	}
	chainID, ok := chainIDs[w.key.Chain]
	if !ok {
		w.log.Error("no chain-id mapping for key")
		return 0, apierr.New(apierr.KindInternal, "no chain-id mapping")
	}

	start, err := w.resolveCursor(ctx, chainID, wallet.StartingTx)
	if err != nil {
		w.log.Warn("cursor resolution failed, starting from zero", "err", err)
		start = 0
	}

	var allItems []EVMTransferItem
	for page := 1; ; page++ {
		items, err := w.explorer.TokenTransfers(ctx, chainID, contract.Address, wallet.Address, start, page)
		if err != nil {
			w.log.Warn("explorer fetch failed", "page", page, "err", err)
			break
		}
		allItems = append(allItems, items...)
		if len(items) < 100 {
			break
		}
	}

	transfers := make([]*entity.Transfer, 0, len(allItems))
	for _, item := range allItems {
		t, err := normalizeEVMItem(w.key, contract.Decimals, wallet.Address, item)
		if err != nil {
			w.log.Warn("unparsable transfer, abandoning tick", "hash", item.Hash, "err", err)
			return 0, err
		}
		if t != nil {
			transfers = append(transfers, t)
		}
	}

	if len(transfers) == 0 {
		return 0, nil
	}
	inserted, err := w.store.InsertTransfersDeduped(ctx, entity.FamilyERC20, transfers)
	if err != nil {
		w.log.Error("persisting transfers failed", "err", err)
		return 0, err
	}
	return inserted, nil
}

// resolveCursor implements spec §4.2's fallback chain for EVM: the
// sync-cursor view, else the wallet's starting_tx resolved to a block
// number via an explorer lookup, else zero.
func (w *EVMWorker) resolveCursor(ctx context.Context, chainID int64, startingTx string) (int64, error) {
	cursor, err := w.store.GetSyncCursor(ctx, w.key, w.clock())
	if err != nil {
		return 0, err
	}
	if cursor != nil && cursor.BlockNumber != nil {
		return *cursor.BlockNumber, nil
	}
	if startingTx != "" {
		block, err := w.explorer.TransactionBlockNumber(ctx, chainID, startingTx)
		if err == nil {
			return block, nil
		}
		w.log.Warn("starting_tx lookup failed, falling back to zero", "err", err)
	}
	return 0, nil
}

// normalizeEVMItem filters out transfers not addressed to wallet and
// converts the rest into an entity.Transfer with value scaled down by
// 10^decimals (spec §4.2 "Ingest"). Returns (nil, nil) for an item
// that should be silently skipped (wrong recipient).
func normalizeEVMItem(key entity.PoolKey, decimals int32, wallet string, item EVMTransferItem) (*entity.Transfer, error) {
	if entity.NormalizeAddress(item.To) != entity.NormalizeAddress(wallet) {
		return nil, nil
	}
	value, err := scaleRawValue(item.Value, decimals)
	if err != nil {
		return nil, err
	}
	blockNumber, err := parseInt64(item.BlockNumber)
	if err != nil {
		return nil, err
	}
	unixTS, err := parseInt64(item.TimeStamp)
	if err != nil {
		return nil, err
	}
	// Etherscan's tokentx envelope only ever lists mined transactions and
	// carries no confirmation flag of its own, unlike tronscan's
	// per-item `confirmed` field (see tron_worker.go); every row this
	// endpoint returns is therefore inserted already confirmed (spec §1
	// Non-goal: "trusts the explorer's blockchain_confirmed flag").
	return &entity.Transfer{
		Chain:               key.Chain,
		Token:               key.Token,
		FromAddress:         item.From,
		ToAddress:           item.To,
		TxnHash:             item.Hash,
		Value:               value,
		BlockNumber:         blockNumber,
		BlockTimestamp:      time.Unix(unixTS, 0).UTC(),
		BlockchainConfirmed: true,
		Status:              entity.TransferWaitingForMatch,
	}, nil
}
