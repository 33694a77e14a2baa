package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/paygate-io/subscription-gateway/internal/adapters/secrets"
	"github.com/paygate-io/subscription-gateway/internal/config"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
)

// initSecretManager initializes the appropriate secret manager backend.
// Supports:
//   - local filesystem (development, default)
//   - AWS Secrets Manager: SECRETS_BACKEND=aws and AWS_REGION
//   - HashiCorp Vault: SECRETS_BACKEND=vault, VAULT_ADDR and VAULT_TOKEN
func initSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) ports.SecretManager {
	switch cfg.Secrets.Backend {
	case "aws":
		sm, err := secrets.NewAWSSecretsManagerAdapter(ctx,
			secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion), logger)
		if err != nil {
			logger.Fatal("Failed to initialize AWS Secrets Manager", zap.Error(err))
		}
		logger.Info("AWS Secrets Manager initialized",
			zap.String("region", cfg.Secrets.AWSRegion),
		)
		return sm

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress, cfg.Secrets.VaultToken)
		vaultCfg.MountPath = cfg.Secrets.VaultMount
		sm, err := secrets.NewVaultAdapter(ctx, vaultCfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Vault", zap.Error(err))
		}
		logger.Info("Vault secret manager initialized",
			zap.String("address", cfg.Secrets.VaultAddress),
		)
		return sm

	case "local":
		return secrets.NewLocalSecretManager(cfg.Secrets.LocalDir, logger)

	default:
		logger.Warn("Unknown SECRETS_BACKEND, falling back to local files",
			zap.String("backend", cfg.Secrets.Backend),
		)
		return secrets.NewLocalSecretManager(cfg.Secrets.LocalDir, logger)
	}
}

// resolveVendorCredentials returns the vendor client id and secret. When
// MP_SECRET_PATH is set the stored value wins over the environment; its
// format is "client_id:client_secret".
func resolveVendorCredentials(ctx context.Context, cfg *config.Config, sm ports.SecretManager, logger *zap.Logger) (string, string) {
	if cfg.Vendor.SecretPath == "" {
		return cfg.Vendor.ClientID, cfg.Vendor.ClientSecret
	}

	secret, err := sm.GetSecret(ctx, cfg.Vendor.SecretPath)
	if err != nil {
		logger.Fatal("Failed to fetch vendor credentials",
			zap.String("path", cfg.Vendor.SecretPath),
			zap.Error(err),
		)
	}

	id, key, ok := strings.Cut(secret.Value, ":")
	if !ok || id == "" || key == "" {
		logger.Fatal("Vendor credential secret is not in client_id:client_secret form",
			zap.String("path", cfg.Vendor.SecretPath),
		)
	}

	return id, key
}
