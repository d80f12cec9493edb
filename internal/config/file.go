// Package config loads the TOML configuration file (spec §6.3) and holds
// it behind a versioned, per-section-locked watch-store (spec §4.1,
// §9 "Global mutable state"). DATABASE_URL is read from the environment,
// never from the file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/ocrch/engine/internal/entity"
)

// File is the on-disk shape of the TOML config file: [server], [admin],
// [merchant], [api_keys], repeated [[wallets]] (spec §6.3).
type File struct {
	Server   ServerSection   `toml:"server"`
	Admin    AdminSection    `toml:"admin"`
	Merchant MerchantSection `toml:"merchant"`
	APIKeys  APIKeysSection  `toml:"api_keys"`
	Wallets  []WalletEntry   `toml:"wallets"`
}

// ServerSection holds process-level settings.
type ServerSection struct {
	ListenAddr string `toml:"listen_addr"`
	LogLevel   string `toml:"log_level"`
}

// AdminSection holds the admin HTTP surface's bearer secret. Secret is
// plaintext the first time the file is authored; Load rewrites it to an
// argon2 hash in place (spec §6.3, original_source
// ocrch-server/src/config/mod.rs).
type AdminSection struct {
	Secret string `toml:"secret"`
}

// MerchantSection holds the HMAC secret and webhook routing the engine
// signs outbound requests with and verifies inbound Service API calls
// against (spec §4.5).
type MerchantSection struct {
	Secret                   string   `toml:"secret"`
	WebhookURL               string   `toml:"webhook_url"`
	UnknownTransferWebhook   string   `toml:"unknown_transfer_webhook_url"`
	AllowedOrigins           []string `toml:"allowed_origins"`
}

// APIKeysSection holds the explorer API keys the sync workers authenticate
// with (spec §6.2).
type APIKeysSection struct {
	Etherscan string `toml:"etherscan"`
	Tronscan  string `toml:"tronscan"`
}

// WalletEntry enumerates one receiving wallet: a blockchain, its address,
// the coins it accepts, and an optional starting-tx cursor fallback
// (spec §6.3, §4.2 "Cursor").
type WalletEntry struct {
	Blockchain   string   `toml:"blockchain"`
	Address      string   `toml:"address"`
	EnabledCoins []string `toml:"enabled_coins"`
	StartingTx   string   `toml:"starting_tx"`
}

// Chain returns the entry's chain as an entity.Blockchain; the value is
// converted as is, without validation.
func (w WalletEntry) Chain() entity.Blockchain {
	return entity.Blockchain(w.Blockchain)
}

// Coins returns the entry's enabled coins as validated entity.Stablecoin
// values, silently skipping anything unrecognized.
func (w WalletEntry) Coins() []entity.Stablecoin {
	coins := make([]entity.Stablecoin, 0, len(w.EnabledCoins))
	for _, c := range w.EnabledCoins {
		sc := entity.Stablecoin(c)
		if sc.Valid() {
			coins = append(coins, sc)
		}
	}
	return coins
}

// LoadFile parses path as TOML into a File. It does not perform the
// argon2 admin-secret rewrite; Load does that separately through
// EnsureAdminSecretHashed and Save, so the rewrite can be tested
// without touching disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var f File
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}
	return &f, nil
}

// Save re-encodes f as TOML and writes it back to path, used after the
// admin-secret rewrite.
func Save(path string, f *File) error {
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}
	enc := toml.NewEncoder(out)
	if err := enc.Encode(f); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding config file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing temp config file: %w", err)
	}
	return os.Rename(tmp, path)
}
