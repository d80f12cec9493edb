package config

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2 parameters. These are fixed rather than configurable: the admin
// secret is rewritten once at startup and compared on every admin
// request, so the cost must stay cheap enough for per-request
// verification while remaining resistant to offline brute force of a
// leaked config file.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16

	hashPrefix = "$argon2id$"
)

// IsHashed reports whether secret is already in the engine's argon2
// encoding, as opposed to plaintext straight from a hand-authored config.
func IsHashed(secret string) bool {
	return strings.HasPrefix(secret, hashPrefix)
}

// HashAdminSecret derives the argon2id encoding of a plaintext admin
// secret, in the "$argon2id$<salt-b64>$<hash-b64>" form Save rewrites the
// config file to (spec §6.3: "admin.secret is rewritten to an argon2 hash
// on first load").
func HashAdminSecret(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating admin secret salt: %w", err)
	}
	sum := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hashPrefix + base64.RawStdEncoding.EncodeToString(salt) + "$" + base64.RawStdEncoding.EncodeToString(sum), nil
}

// VerifyAdminSecret constant-time-compares a plaintext candidate against
// an already-hashed stored value.
func VerifyAdminSecret(stored, candidate string) (bool, error) {
	if !IsHashed(stored) {
		return false, fmt.Errorf("stored admin secret is not hashed")
	}
	rest := strings.TrimPrefix(stored, hashPrefix)
	parts := strings.SplitN(rest, "$", 2)
	if len(parts) != 2 {
		return false, fmt.Errorf("malformed stored admin secret")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, fmt.Errorf("decoding admin secret salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("decoding admin secret hash: %w", err)
	}
	got := argon2.IDKey([]byte(candidate), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// EnsureAdminSecretHashed rewrites f.Admin.Secret to its argon2 encoding
// in place if it is currently plaintext, and reports whether it changed
// (so the caller knows to persist the file back to disk).
func EnsureAdminSecretHashed(f *File) (changed bool, err error) {
	if IsHashed(f.Admin.Secret) {
		return false, nil
	}
	hashed, err := HashAdminSecret(f.Admin.Secret)
	if err != nil {
		return false, err
	}
	f.Admin.Secret = hashed
	return true, nil
}
