package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

// Client talks to a remote agent over mTLS
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a new agent client
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Load TLS config
	tlsConfig, err := config.LoadClientTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS config: %w", err)
	}

	// Create HTTP client with TLS
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
		Timeout: 30 * time.Second,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// Get fetches the raw response of an agent endpoint
func (c *Client) Get(endpoint string) ([]byte, error) {
	url := fmt.Sprintf("https://%s:%d/%s", c.config.Host, c.config.Port, endpoint)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// SysInfo fetches processor identity and host facts from the agent
func (c *Client) SysInfo() (*SysInfo, error) {
	body, err := c.Get("sysinfo")
	if err != nil {
		return nil, err
	}

	info := &SysInfo{}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, fmt.Errorf("failed to parse sysinfo response: %w", err)
	}
	return info, nil
}

// Telemetry fetches one live reading from the agent
func (c *Client) Telemetry() (*monitor.Reading, error) {
	body, err := c.Get("telemetry")
	if err != nil {
		return nil, err
	}

	reading := &monitor.Reading{}
	if err := json.Unmarshal(body, reading); err != nil {
		return nil, fmt.Errorf("failed to parse telemetry response: %w", err)
	}
	return reading, nil
}

// CheckHealth checks if the agent is healthy
func (c *Client) CheckHealth() error {
	body, err := c.Get("health")
	if err != nil {
		return err
	}

	if string(body) != "OK\n" {
		return fmt.Errorf("unexpected health response: %s", string(body))
	}

	return nil
}
