package search

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/superadviser/query-gateway/internal/models"
)

const defaultBaseURL = "https://google.serper.dev"

// Client calls the Serper search API.
type Client struct {
	httpClient *resty.Client
	apiKey     string
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a Serper API client. Every call carries the timeout as an
// upper bound; a hung upstream can never block a request indefinitely.
func NewClient(apiKey string, timeout time.Duration, opts ...Option) *Client {
	client := resty.New()
	client.SetHeader("User-Agent", "superadviser-query-gateway/1.0")
	client.SetTimeout(timeout)

	c := &Client{
		httpClient: client,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one query against the vertical named by req.Type.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	endpoint := c.baseURL + "/" + vertical(req.Type)

	var result Response
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&result).
		Post(endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to query Serper %s API: %w", vertical(req.Type), err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("Serper %s API error (status %d): %s", vertical(req.Type), resp.StatusCode(), resp.String())
	}

	return &result, nil
}

func vertical(t models.SearchType) string {
	switch t {
	case models.SearchTypeNews:
		return "news"
	case models.SearchTypeImages:
		return "images"
	default:
		return "search"
	}
}
