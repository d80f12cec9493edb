package config

import (
	"fmt"
	"os"

	"github.com/ocrch/engine/internal/logging"
)

// Load reads path, rewrites a plaintext admin secret to its argon2 form
// (persisting the change back to path), and returns a ready SharedConfig.
// Mirrors spec §6.3's "admin.secret is rewritten to an argon2 hash on
// first load".
func Load(path string) (*SharedConfig, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	changed, err := EnsureAdminSecretHashed(f)
	if err != nil {
		return nil, fmt.Errorf("hashing admin secret: %w", err)
	}
	if changed {
		if err := Save(path, f); err != nil {
			return nil, fmt.Errorf("persisting hashed admin secret: %w", err)
		}
		logging.Info("rewrote plaintext admin secret to argon2 hash", "path", path)
	}

	return NewSharedConfig(f), nil
}

// DatabaseURL reads DATABASE_URL from the environment. Per spec §6.3 it
// never lives in the TOML file.
func DatabaseURL() (string, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return "", fmt.Errorf("DATABASE_URL is not set")
	}
	return url, nil
}
