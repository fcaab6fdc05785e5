package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretFetcher defines the interface for fetching secrets
type SecretFetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

// SecretManagerClient wraps the GCP Secret Manager client
type SecretManagerClient struct {
	client    *secretmanager.Client
	projectID string
}

var _ SecretFetcher = (*SecretManagerClient)(nil)

// NewSecretManagerClient creates a Secret Manager client. credentialsFile is
// optional; application default credentials are used when it is empty.
func NewSecretManagerClient(ctx context.Context, credentialsFile string) (*SecretManagerClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &SecretManagerClient{
		client:    client,
		projectID: projectIDFromEnv(),
	}, nil
}

// FetchSecret retrieves a secret payload. secretPath may be a full version
// path, a secret path without version (latest is used), or a bare secret name
// resolved against GOOGLE_CLOUD_PROJECT.
func (c *SecretManagerClient) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	name, err := normalizeSecretPath(secretPath, c.projectID)
	if err != nil {
		return "", err
	}

	result, err := c.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", name, err)
	}

	return string(result.Payload.Data), nil
}

// Close closes the Secret Manager client
func (c *SecretManagerClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func normalizeSecretPath(secretPath, projectID string) (string, error) {
	switch {
	case strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/versions/"):
		return secretPath, nil
	case strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/secrets/"):
		return secretPath + "/versions/latest", nil
	case strings.Contains(secretPath, "/"):
		return "", fmt.Errorf("invalid secret path %q", secretPath)
	case projectID == "":
		return "", fmt.Errorf("secret %q needs a project: set GOOGLE_CLOUD_PROJECT or use a full path", secretPath)
	default:
		return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretPath), nil
	}
}

func projectIDFromEnv() string {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if projectID := os.Getenv(key); projectID != "" {
			return projectID
		}
	}
	return ""
}
