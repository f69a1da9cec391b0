package squareapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ledgerkeep/billing-console/pkg/config"
)

// apiVersion pins the remote API version for all requests
const apiVersion = "2024-06-04"

// Client is an HTTP client for the payments-platform gift card API
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a new API client from configuration
func NewClient(cfg *config.SquareConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// ListGiftCards fetches a page of gift cards
func (c *Client) ListGiftCards(ctx context.Context, opts ListGiftCardsOptions) (*ListGiftCardsResponse, error) {
	query := url.Values{}
	if opts.Type != "" {
		query.Set("type", opts.Type)
	}
	if opts.State != "" {
		query.Set("state", opts.State)
	}
	if opts.CustomerID != "" {
		query.Set("customer_id", opts.CustomerID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}

	var resp ListGiftCardsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/gift-cards", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetrieveGiftCard fetches a single gift card by ID
func (c *Client) RetrieveGiftCard(ctx context.Context, giftCardID string) (*RetrieveGiftCardResponse, error) {
	var resp RetrieveGiftCardResponse
	path := "/v2/gift-cards/" + url.PathEscape(giftCardID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetrieveGiftCardFromGAN fetches a single gift card by its account number
func (c *Client) RetrieveGiftCardFromGAN(ctx context.Context, gan string) (*RetrieveGiftCardResponse, error) {
	var resp RetrieveGiftCardResponse
	req := RetrieveFromGANRequest{GAN: gan}
	if err := c.do(ctx, http.MethodPost, "/v2/gift-cards/from-gan", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateGiftCard registers a new gift card
func (c *Client) CreateGiftCard(ctx context.Context, req CreateGiftCardRequest) (*CreateGiftCardResponse, error) {
	var resp CreateGiftCardResponse
	if err := c.do(ctx, http.MethodPost, "/v2/gift-cards", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LinkCustomer links a customer to a gift card
func (c *Client) LinkCustomer(ctx context.Context, giftCardID, customerID string) (*LinkCustomerResponse, error) {
	var resp LinkCustomerResponse
	path := "/v2/gift-cards/" + url.PathEscape(giftCardID) + "/link-customer"
	req := LinkCustomerRequest{CustomerID: customerID}
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListGiftCardActivities fetches a page of gift card activities
func (c *Client) ListGiftCardActivities(ctx context.Context, opts ListActivitiesOptions) (*ListActivitiesResponse, error) {
	query := url.Values{}
	if opts.GiftCardID != "" {
		query.Set("gift_card_id", opts.GiftCardID)
	}
	if opts.Type != "" {
		query.Set("type", opts.Type)
	}
	if opts.LocationID != "" {
		query.Set("location_id", opts.LocationID)
	}
	if opts.BeginTime != "" {
		query.Set("begin_time", opts.BeginTime)
	}
	if opts.EndTime != "" {
		query.Set("end_time", opts.EndTime)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.SortOrder != "" {
		query.Set("sort_order", opts.SortOrder)
	}

	var resp ListActivitiesResponse
	if err := c.do(ctx, http.MethodGet, "/v2/gift-card-activities", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateGiftCardActivity records a balance or state mutation on a gift card
func (c *Client) CreateGiftCardActivity(ctx context.Context, req CreateActivityRequest) (*CreateActivityResponse, error) {
	var resp CreateActivityResponse
	if err := c.do(ctx, http.MethodPost, "/v2/gift-card-activities", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do executes a request and decodes the JSON response into out.
// Non-2xx responses are returned as *RequestError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Square-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Errors []APIError `json:"errors"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return &RequestError{StatusCode: resp.StatusCode, Errors: errResp.Errors}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
