package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/hyp3rd/mssql-tool-server/internal/constants"
	"github.com/hyp3rd/mssql-tool-server/internal/secrets/providers/aws"
	"github.com/hyp3rd/mssql-tool-server/internal/secrets/providers/azure"
	"github.com/hyp3rd/mssql-tool-server/internal/secrets/providers/dotenv"
	"github.com/hyp3rd/mssql-tool-server/internal/secrets/providers/gcp"
	"github.com/hyp3rd/mssql-tool-server/internal/secrets/providers/vault"
)

// SourceName selects which provider NewProviderFromEnv constructs, matching
// the orchestrator's SECRET_SOURCE environment variable (spec.md §6
// "secretSource").
type SourceName string

const (
	SourceNone           SourceName = "none"
	SourceDotenv         SourceName = "dotenv"
	SourceDotenvEncrypted SourceName = "dotenv_encrypted"
	SourceAWS            SourceName = "aws"
	SourceAzure          SourceName = "azure"
	SourceGCP            SourceName = "gcp"
	SourceVault          SourceName = "vault"
)

// NewProviderFromEnv builds the secrets.Provider named by the SECRET_SOURCE
// environment variable, reading each provider's own parameters from its
// conventional environment variables (spec.md §6 "secretSourceParams"). An
// unset or "none" SECRET_SOURCE returns (nil, nil): the orchestrator falls
// back to config file/env-only resolution.
func NewProviderFromEnv(ctx context.Context) (Provider, error) {
	switch SourceName(os.Getenv("SECRET_SOURCE")) {
	case "", SourceNone:
		return nil, nil //nolint:nilnil
	case SourceDotenv:
		return dotenv.New(Config{
			Source:  EnvFile,
			Prefix:  constants.EnvPrefix.String(),
			EnvPath: envOr("SECRET_DOTENV_PATH", ".env"),
		})
	case SourceDotenvEncrypted:
		password := os.Getenv("SECRETS_ENCRYPTION_PASSWORD")
		if password == "" {
			return nil, fmt.Errorf("SECRETS_ENCRYPTION_PASSWORD must be set for secretSource=dotenv_encrypted")
		}

		return dotenv.NewEncrypted(Config{
			Source:  EnvFile,
			Prefix:  constants.EnvPrefix.String(),
			EnvPath: envOr("SECRET_DOTENV_PATH", ".env.encrypted"),
		}, password)
	case SourceAWS:
		return aws.New(ctx, aws.Config{
			Region:     envOr("SECRET_AWS_REGION", "us-east-1"),
			BasePath:   os.Getenv("SECRET_AWS_BASE_PATH"),
			MaxRetries: constants.DefaultMaxRetries,
			Timeout:    constants.DefaultTimeout,
		})
	case SourceAzure:
		return azure.New(ctx, azure.Config{
			VaultName:          os.Getenv("SECRET_AZURE_VAULT_NAME"),
			TenantID:           os.Getenv("SECRET_AZURE_TENANT_ID"),
			ClientID:           os.Getenv("SECRET_AZURE_CLIENT_ID"),
			ClientSecret:       os.Getenv("SECRET_AZURE_CLIENT_SECRET"),
			UseManagedIdentity: os.Getenv("SECRET_AZURE_USE_MANAGED_IDENTITY") == "true",
			Timeout:            constants.DefaultTimeout,
			MaxRetries:         constants.DefaultMaxRetries,
		})
	case SourceGCP:
		return gcp.New(ctx, gcp.Config{
			ProjectID:       os.Getenv("SECRET_GCP_PROJECT_ID"),
			CredentialsFile: os.Getenv("SECRET_GCP_CREDENTIALS_FILE"),
			BasePath:        os.Getenv("SECRET_GCP_BASE_PATH"),
			Timeout:         constants.DefaultTimeout,
			MaxRetries:      constants.DefaultMaxRetries,
		})
	case SourceVault:
		return vault.New(vault.Config{
			Address:    envOr("SECRET_VAULT_ADDR", "http://127.0.0.1:8200"),
			Token:      os.Getenv("SECRET_VAULT_TOKEN"),
			MountPath:  envOr("SECRET_VAULT_MOUNT_PATH", "secret"),
			BasePath:   os.Getenv("SECRET_VAULT_BASE_PATH"),
			Namespace:  os.Getenv("SECRET_VAULT_NAMESPACE"),
			Timeout:    constants.DefaultTimeout,
			MaxRetries: constants.DefaultMaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown SECRET_SOURCE %q", os.Getenv("SECRET_SOURCE"))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
