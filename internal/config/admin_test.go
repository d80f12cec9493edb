package config

import "testing"

import "github.com/stretchr/testify/require"

func TestHashAndVerifyAdminSecret(t *testing.T) {
	hashed, err := HashAdminSecret("correct-horse-battery-staple")
	require.NoError(t, err)
	require.True(t, IsHashed(hashed))

	ok, err := VerifyAdminSecret(hashed, "correct-horse-battery-staple")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyAdminSecret(hashed, "wrong-secret")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEnsureAdminSecretHashedRewritesPlaintextOnce(t *testing.T) {
	f := &File{Admin: AdminSection{Secret: "plaintext-secret"}}

	changed, err := EnsureAdminSecretHashed(f)
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, IsHashed(f.Admin.Secret))

	stored := f.Admin.Secret
	changed, err = EnsureAdminSecretHashed(f)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, stored, f.Admin.Secret)
}
