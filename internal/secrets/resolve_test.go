package secrets_test

import (
	"testing"

	"github.com/kevinmichaelchen/helix-tools/internal/secrets"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKeyringURI(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid URI", "keyring://helix/openai-api-key", true},
		{"valid URI with dashes", "keyring://my-svc/my-key", true},
		{"env var reference", "${OPENAI_API_KEY}", false},
		{"literal value", "sk-abc123", false},
		{"empty string", "", false},
		{"just scheme", "keyring://", true},
		{"other scheme", "vault://secret/key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := secrets.IsKeyringURI(tt.value)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://helix/api-key", "helix", "api-key", false},
		{"dashes", "keyring://my-service/my-key-name", "my-service", "my-key-name", false},
		{"slashes in key", "keyring://helix/path/to/key", "helix", "path/to/key", false},
		{"not a keyring URI", "vault://secret/key", "", "", true},
		{"missing key", "keyring://helix/", "", "", true},
		{"missing service", "keyring:///key", "", "", true},
		{"missing both", "keyring://", "", "", true},
		{"no path", "keyring://helix", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, helixerr.HasCode(err, helixerr.CodeSecretInvalidInput))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantService, svc)
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

func TestResolveKeyringURI(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("helix", "test-key", "resolved-secret"))

	t.Run("resolves keyring URI", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "keyring://helix/test-key")
		require.NoError(t, err)
		assert.Equal(t, "resolved-secret", val)
	})

	t.Run("passes through non-keyring values", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "literal-value")
		require.NoError(t, err)
		assert.Equal(t, "literal-value", val)
	})

	t.Run("passes through env var references", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "${ENV_VAR}")
		require.NoError(t, err)
		assert.Equal(t, "${ENV_VAR}", val)
	})

	t.Run("error on missing secret", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(ks, "keyring://helix/nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolving keyring URI")
	})

	t.Run("error on malformed URI", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(ks, "keyring://bad")
		require.Error(t, err)
	})
}

func TestResolveViperSecrets(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("helix", "openai-api-key", "sk-oai-secret"))

	v := viper.New()
	v.Set("embedder.api_key_ref", "keyring://helix/openai-api-key")
	v.Set("index.directory", "/home/user/.helix/data/decisions") // non-keyring value
	v.Set("embedder.model", "text-embedding-3-small")

	require.NoError(t, secrets.ResolveViperSecrets(v, ks))

	assert.Equal(t, "sk-oai-secret", v.GetString("embedder.api_key_ref"))
	assert.Equal(t, "/home/user/.helix/data/decisions", v.GetString("index.directory"))
	assert.Equal(t, "text-embedding-3-small", v.GetString("embedder.model"))
}

func TestResolveViperSecrets_MissingSecretReturnsError(t *testing.T) {
	ks := secrets.NewKeyringStore()

	v := viper.New()
	v.Set("embedder.api_key_ref", "keyring://helix/nonexistent-key")

	err := secrets.ResolveViperSecrets(v, ks)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder.api_key_ref")
	assert.Contains(t, err.Error(), "keyring://helix/nonexistent-key")
}
