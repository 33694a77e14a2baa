package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., vendor client secret)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManager defines the port for retrieving secrets from a secret
// management service. Supported backends: local filesystem (development),
// AWS Secrets Manager, HashiCorp Vault.
// Implementation is responsible for:
//   - Authentication with the secret manager service
//   - Caching secrets appropriately (with TTL)
type SecretManager interface {
	// GetSecret retrieves a secret by its path/name.
	// Path format depends on implementation:
	//   - AWS: "subscription-gateway/vendor/client_secret"
	//   - Vault: "secret/data/subscription-gateway/vendor"
	// Returns error if the secret does not exist, permissions are
	// insufficient, or the service is unreachable.
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret creates or updates a secret (admin/rotation operations).
	// Returns the new version identifier.
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (version string, err error)
}
