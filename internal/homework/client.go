package homework

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client reads homework statuses from the review API.
type Client struct {
	http     *resty.Client
	endpoint string
}

// NewClient returns a Client authorized with the OAuth token.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Authorization", "OAuth "+token).
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient, endpoint: endpoint}
}

// Statuses returns homework status changes since the unix timestamp from.
func (c *Client) Statuses(ctx context.Context, from int64) (*StatusResponse, error) {
	var out StatusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("from_date", strconv.FormatInt(from, 10)).
		SetResult(&out).
		ForceContentType("application/json").
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("запрос к %s не удался: %w", c.endpoint, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("эндпоинт %s недоступен, код ответа %d", c.endpoint, resp.StatusCode())
	}
	return &out, nil
}
