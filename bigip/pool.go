package bigip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	versionResource  = "/mgmt/tm/sys/version"
	poolListResource = "/mgmt/tm/ltm/pool"
)

// Pool is an LTM pool. AutoscaleGroupID is empty when the pool is not bound
// to an Auto Scaling Group.
type Pool struct {
	Name             string `json:"name"`
	Partition        string `json:"partition,omitempty"`
	FullPath         string `json:"fullPath,omitempty"`
	AutoscaleGroupID string `json:"autoscaleGroupId,omitempty"`
}

func (p Pool) String() string {
	if p.FullPath != "" {
		return p.FullPath
	}
	return p.Name
}

type poolList struct {
	Items    []Pool `json:"items"`
	NextLink string `json:"nextLink,omitempty"`
}

type versionStats struct {
	Entries map[string]struct {
		NestedStats struct {
			Entries map[string]struct {
				Description string `json:"description"`
			} `json:"entries"`
		} `json:"nestedStats"`
	} `json:"entries"`
}

// Client is a session with a single device.
type Client struct {
	rest client
	log  log.FieldLogger
}

// NewClient returns a Client for the device described by cfg.
func NewClient(cfg *Config, logger log.FieldLogger) (*Client, error) {
	return newClient(cfg, logger, false)
}

func newClient(cfg *Config, logger log.FieldLogger, disableInstrumentedHttpClient bool) (*Client, error) {
	c, err := newSimpleClient(cfg, disableInstrumentedHttpClient)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{rest: c, log: logger.WithField("device", cfg.BaseURL)}, nil
}

// Open validates the credentials against the device and returns its
// software version, or "unknown" when the device does not report one.
func (c *Client) Open(ctx context.Context) (string, error) {
	var stats versionStats
	if err := c.getJSON(ctx, versionResource, &stats); err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}

	version := "unknown"
	for _, e := range stats.Entries {
		if v, ok := e.NestedStats.Entries["Version"]; ok && v.Description != "" {
			version = v.Description
			break
		}
	}
	c.log.Debugf("session opened, device version %s", version)
	return version, nil
}

// Close releases the connections kept open to the device.
func (c *Client) Close() {
	c.rest.closeIdleConnections()
}

// Pools returns every LTM pool on the device across all partitions,
// following pagination links.
func (c *Client) Pools(ctx context.Context) ([]Pool, error) {
	var result []Pool
	visited := make(map[string]bool)
	resource := poolListResource
	for resource != "" && !visited[resource] {
		visited[resource] = true
		var page poolList
		if err := c.getJSON(ctx, resource, &page); err != nil {
			return nil, fmt.Errorf("failed to get pool list: %w", err)
		}
		result = append(result, page.Items...)

		next, err := relativeLink(page.NextLink)
		if err != nil {
			return nil, fmt.Errorf("invalid next link %q: %w", page.NextLink, err)
		}
		resource = next
	}
	c.log.Debugf("found %d pools", len(result))
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, resource string, v interface{}) error {
	r, err := c.rest.get(ctx, resource)
	if err != nil {
		return err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// relativeLink strips scheme and host from the links the device returns,
// which always point at https://localhost.
func relativeLink(link string) (string, error) {
	if link == "" {
		return "", nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(u.Path, "/mgmt/") {
		return "", fmt.Errorf("unexpected path %q", u.Path)
	}
	return u.RequestURI(), nil
}
