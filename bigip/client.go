package bigip

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/linki/instrumented_http"
)

var (
	// ErrResourceNotFound is returned when the device answers 404.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrUnauthorized is returned when the device rejects the credentials.
	ErrUnauthorized = errors.New("device rejected credentials")
	// ErrInvalidCertificates is returned when the CA file holds no usable certificates.
	ErrInvalidCertificates = errors.New("invalid CA certificates")
)

type client interface {
	get(context.Context, string) (io.ReadCloser, error)
	closeIdleConnections()
}

type simpleClient struct {
	cfg        *Config
	httpClient *http.Client
	transport  *http.Transport
}

func newSimpleClient(cfg *Config, disableInstrumentedHttpClient bool) (client, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.Insecure,
	}
	if cfg.CAFile != "" {
		fileData, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(fileData) {
			return nil, ErrInvalidCertificates
		}
		tlsConfig.RootCAs = certPool
	}

	transport := &http.Transport{
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     tlsConfig,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	c := &http.Client{Transport: transport}
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}

	if !disableInstrumentedHttpClient {
		c = instrumented_http.NewClient(c, &instrumented_http.Callbacks{
			PathProcessor: func(path string) string {
				parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
				return parts[len(parts)-1]
			},
		})
	}

	return &simpleClient{cfg: cfg, httpClient: c, transport: transport}, nil
}

func (c *simpleClient) get(ctx context.Context, resource string) (io.ReadCloser, error) {
	req, err := c.createRequest(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrResourceNotFound
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	}
	b, err := io.ReadAll(resp.Body)
	if err == nil {
		err = fmt.Errorf("unexpected status code (%s) for GET %q: %s", http.StatusText(resp.StatusCode), resource, b)
	}
	return nil, err
}

// closeIdleConnections goes to the transport directly since the instrumented
// round tripper does not forward it.
func (c *simpleClient) closeIdleConnections() {
	c.transport.CloseIdleConnections()
}

func (c *simpleClient) createRequest(ctx context.Context, method, resource string, body io.Reader) (*http.Request, error) {
	urlStr := c.cfg.BaseURL + resource
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	return req, nil
}
