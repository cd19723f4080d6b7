// Package secrets resolves credentials referenced from configuration —
// most importantly an embedder's API key — out of the OS keyring, so that
// no plaintext secret need live in a config file on disk.
package secrets

// Store provides secure secret storage operations.
// Implementations may use OS keyrings, encrypted files, or other backends.
type Store interface {
	// Store saves a secret value under the given service and key.
	Store(service, key, value string) error

	// Retrieve fetches the secret value for the given service and key.
	// Returns an error classified helixerr.IsNotFound if the key does not exist.
	Retrieve(service, key string) (string, error)

	// Delete removes the secret for the given service and key.
	// Returns an error classified helixerr.IsNotFound if the key does not exist.
	Delete(service, key string) error

	// List returns all key names stored under the given service.
	List(service string) ([]string, error)
}
