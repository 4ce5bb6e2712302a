package bigip

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

// Config holds the attributes that can be passed to a BIG-IP client on
// initialization.
type Config struct {
	// BaseURL must be a URL to the base of the management API, e.g.
	// https://10.0.0.1:8443
	BaseURL string

	// Credentials used for HTTP basic authentication.
	Credentials

	// TLSClientConfig contains settings to enable transport layer security
	TLSClientConfig

	// Device should be accessed without verifying the TLS certificate.
	// BIG-IP ships with a self-signed certificate, so this is commonly
	// needed unless a CA bundle is provided.
	Insecure bool

	// UserAgent is an optional field that specifies the caller of this request.
	UserAgent string

	// The maximum length of time to wait before giving up on a device request. A value of zero means no timeout.
	Timeout time.Duration
}

// TLSClientConfig contains settings to enable transport layer security
type TLSClientConfig struct {
	// Trusted root certificates for the device
	CAFile string
}

const (
	// DefaultPort is the port of the management API on multi-NIC deployments.
	// Single-NIC deployments listen on 8443.
	DefaultPort    = 443
	DefaultTimeout = 10 * time.Second

	defaultUserAgent = "f5-aws-autoscale-tagger"
)

// NewConfig creates a configuration for the device at host.
func NewConfig(host string, port uint, creds Credentials) *Config {
	if port == 0 {
		port = DefaultPort
	}
	return &Config{
		BaseURL:     "https://" + net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10)),
		Credentials: creds,
		UserAgent:   defaultUserAgent,
		Timeout:     DefaultTimeout,
	}
}

// Credentials are the username and password of a device account.
type Credentials struct {
	Username string
	Password string
}

// ErrMissingCredentials is returned when a provider has no username or password.
var ErrMissingCredentials = errors.New("missing device credentials")

// A CredentialsProvider returns the credentials to use for the device at
// host.
type CredentialsProvider interface {
	Credentials(ctx context.Context, host string) (Credentials, error)
}

// StaticCredentials uses the same credentials for every device.
type StaticCredentials Credentials

// Credentials implements CredentialsProvider.
func (c StaticCredentials) Credentials(context.Context, string) (Credentials, error) {
	if c.Username == "" || c.Password == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return Credentials(c), nil
}
