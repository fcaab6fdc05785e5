package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var logger = log.WithField("package", "auth")

// Options selects and configures the credential source.
type Options struct {
	// Token is a personal access or installation token. It wins over App
	// credentials when both are set.
	Token string

	AppID          int64
	InstallationID int64
	PrivateKeyFile string
	// PrivateKeySecret is a GCP Secret Manager path holding the App key.
	PrivateKeySecret   string
	GCPCredentialsFile string

	// BaseURL is the GitHub Enterprise API root used for token exchange.
	BaseURL string
}

// UsesApp reports whether the options describe GitHub App authentication.
func (o Options) UsesApp() bool {
	return o.Token == "" && o.AppID != 0
}

// NewTokenSource returns the token source described by opts. secrets is only
// consulted when the App key lives in Secret Manager; pass nil to have one
// created on demand.
func NewTokenSource(ctx context.Context, opts Options, secrets SecretFetcher) (oauth2.TokenSource, error) {
	if opts.Token != "" {
		logger.Debug("Using static token")
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}), nil
	}
	if !opts.UsesApp() {
		return nil, fmt.Errorf("no GitHub credentials: set GITHUB_TOKEN or configure a GitHub App")
	}
	if opts.InstallationID <= 0 {
		return nil, fmt.Errorf("installation ID must be positive")
	}

	key, err := loadPrivateKey(ctx, opts, secrets)
	if err != nil {
		return nil, err
	}

	generator, err := NewJWTGenerator(opts.AppID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT generator: %w", err)
	}

	logger.WithField("app_id", opts.AppID).WithField("installation_id", opts.InstallationID).Info("Using GitHub App credentials")

	return oauth2.ReuseTokenSource(nil, &installationTokenSource{
		ctx:            ctx,
		jwt:            generator,
		installationID: opts.InstallationID,
		baseURL:        opts.BaseURL,
		httpClient:     http.DefaultClient,
	}), nil
}

func loadPrivateKey(ctx context.Context, opts Options, secrets SecretFetcher) ([]byte, error) {
	switch {
	case opts.PrivateKeyFile != "":
		key, err := os.ReadFile(opts.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file: %w", err)
		}
		return key, nil

	case opts.PrivateKeySecret != "":
		if secrets == nil {
			client, err := NewSecretManagerClient(ctx, opts.GCPCredentialsFile)
			if err != nil {
				return nil, err
			}
			defer client.Close()
			secrets = client
		}

		key, err := secrets.FetchSecret(ctx, opts.PrivateKeySecret)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch private key secret: %w", err)
		}
		return []byte(key), nil

	default:
		return nil, fmt.Errorf("GitHub App requires private_key_file or private_key_secret")
	}
}
