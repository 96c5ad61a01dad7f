package elsearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

// Config selects the cluster and the contract index
type Config struct {
	Addresses []string
	Username  string
	Password  string

	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
	EnableDebug  bool

	InsecureSkipVerify bool

	// IndexName defaults to "contracts"
	IndexName string
}

// Client is the contract search index
type Client struct {
	ES     *elasticsearch.Client
	config *Config
}

// NewClient builds a client and pings the cluster. Unset fields are read
// from ELASTICSEARCH_URL, ELASTICSEARCH_USERNAME and ELASTICSEARCH_PASSWORD.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	if len(cfg.Addresses) == 0 {
		if url := os.Getenv("ELASTICSEARCH_URL"); url != "" {
			cfg.Addresses = []string{url}
		} else {
			cfg.Addresses = []string{"http://elasticsearch:9200"}
		}
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("ELASTICSEARCH_USERNAME")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("ELASTICSEARCH_PASSWORD")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "contracts"
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff: func(i int) time.Duration {
			return cfg.RetryBackoff * time.Duration(i)
		},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: cfg.Timeout,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		},
		EnableDebugLogger: cfg.EnableDebug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	client := &Client{ES: es, config: cfg}
	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping elasticsearch: %w", err)
	}
	return client, nil
}

// IndexName is the contract index this client writes to
func (c *Client) IndexName() string {
	return c.config.IndexName
}

// Ping tests the connection
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.ES.Ping(c.ES.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed with status: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the contract index with its mapping when missing
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.ES.Indices.Exists([]string{c.config.IndexName}, c.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("checking index %s: %w", c.config.IndexName, err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = c.ES.Indices.Create(
		c.config.IndexName,
		c.ES.Indices.Create.WithContext(ctx),
		c.ES.Indices.Create.WithBody(bytes.NewReader(contractMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", c.config.IndexName, err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("failed to create index %s: %s", c.config.IndexName, res.String())
	}
	return nil
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
