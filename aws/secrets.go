package aws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/ghodss/yaml"

	"github.com/zalando-incubator/f5-aws-autoscale-tagger/bigip"
)

// ErrInvalidSecret is returned when a credentials secret has no string value
// or lacks a username or password.
var ErrInvalidSecret = errors.New("invalid credentials secret")

type credentialsSecret struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SecretsManagerCredentials provides device credentials stored in a single
// Secrets Manager secret. The secret string may be JSON or YAML with the keys
// username and password. The secret is fetched once and reused.
type SecretsManagerCredentials struct {
	svc      SecretsManagerAPI
	secretID string

	mu     sync.Mutex
	cached *bigip.Credentials
}

var _ bigip.CredentialsProvider = &SecretsManagerCredentials{}

// NewSecretsManagerCredentials returns a provider reading secretID through svc.
func NewSecretsManagerCredentials(svc SecretsManagerAPI, secretID string) *SecretsManagerCredentials {
	return &SecretsManagerCredentials{svc: svc, secretID: secretID}
}

// Credentials returns the credentials stored in the secret. The same
// credentials are used for every device.
func (p *SecretsManagerCredentials) Credentials(ctx context.Context, _ string) (bigip.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}

	resp, err := p.svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretID),
	})
	if err != nil {
		return bigip.Credentials{}, fmt.Errorf("failed to get secret %q: %w", p.secretID, err)
	}

	creds, err := parseCredentialsSecret(aws.ToString(resp.SecretString))
	if err != nil {
		return bigip.Credentials{}, fmt.Errorf("secret %q: %w", p.secretID, err)
	}
	p.cached = &creds
	return creds, nil
}

func parseCredentialsSecret(s string) (bigip.Credentials, error) {
	if s == "" {
		return bigip.Credentials{}, fmt.Errorf("%w: empty secret string", ErrInvalidSecret)
	}

	var secret credentialsSecret
	if err := yaml.Unmarshal([]byte(s), &secret); err != nil {
		return bigip.Credentials{}, fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}
	if secret.Username == "" || secret.Password == "" {
		return bigip.Credentials{}, fmt.Errorf("%w: username and password are required", ErrInvalidSecret)
	}
	return bigip.Credentials{Username: secret.Username, Password: secret.Password}, nil
}
