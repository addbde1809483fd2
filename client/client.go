// Package client provides a Go consumer for the portfolio dashboard API: a
// plain request client and a sync controller that keeps a live view fresh via
// the SSE stream, degrading to polling when the stream is unavailable.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/go-resty/resty/v2"
)

type Client struct {
	rest *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &Client{rest: rest}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, target any) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("api returned %d: %s", resp.StatusCode(), resp.Body())
	}
	return json.Unmarshal(resp.Body(), target)
}

func (c *Client) Portfolio(ctx context.Context) (model.Portfolio, error) {
	var p model.Portfolio
	return p, c.get(ctx, "/api/portfolio", nil, &p)
}

func (c *Client) EnrichedPortfolio(ctx context.Context) (model.EnrichedPortfolio, error) {
	var p model.EnrichedPortfolio
	return p, c.get(ctx, "/api/portfolio", map[string]string{"enrich": "1"}, &p)
}

func (c *Client) Report(ctx context.Context) ([]byte, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		Get("/api/portfolio/report")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("api returned %d: %s", resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

func (c *Client) baseURL() string {
	return c.rest.BaseURL
}
