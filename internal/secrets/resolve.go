package secrets

import (
	"strings"

	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
	"github.com/spf13/viper"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key URI.
// Returns an error if the URI is malformed.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", helixerr.Errorf(helixerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", helixerr.Errorf(helixerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// ResolveKeyringURI resolves a single keyring:// URI to its secret value.
// Returns the original value unchanged if it is not a keyring URI.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", helixerr.Wrapf(err, helixerr.CodeSecretResolveFailure,
			"resolving keyring URI %q", value)
	}

	return secret, nil
}

// ResolveViperSecrets walks every key in a Viper instance and resolves any
// string value that uses the keyring:// URI scheme in place. An embedder
// API key is the only value this index currently expects to carry a
// keyring:// reference, but resolution runs over all keys so additional
// secret-bearing config fields can adopt the same scheme without code
// changes here.
//
// Unlike a best-effort resolver, a key whose URI cannot be resolved is a
// fatal configuration error: the caller asked for a secret this process
// cannot read, and silently keeping the unresolved URI would let it leak
// into an API request as a literal credential.
func ResolveViperSecrets(v *viper.Viper, store Store) error {
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}

		resolved, err := ResolveKeyringURI(store, val)
		if err != nil {
			return helixerr.Wrapf(err, helixerr.CodeSecretResolveFailure,
				"config key %q references %q", key, val)
		}

		v.Set(key, resolved)
	}
	return nil
}
