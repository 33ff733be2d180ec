package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// ErrServerURLRequired is returned by NewClient without a ServerURL.
var ErrServerURLRequired = errors.New("ServerURL is required")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client provides HTTP client for the LedgerStream API
type Client struct {
	config     Config
	httpClient *http.Client
	// streamClient has no overall timeout; streams end with their context.
	streamClient *http.Client
	baseURL      *url.URL
}

// NewClient creates a new LedgerStream HTTP client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, ErrServerURLRequired
	}

	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
		baseURL:      baseURL,
	}, nil
}

// ListAccounts returns every account
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var resp AccountsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/accounts", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return resp.Accounts, nil
}

// GetAccount returns one account
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var acc Account
	path := "/api/v1/accounts/" + url.PathEscape(accountID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &acc); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}

// ListTransactions returns a page of an account's history, newest first. A
// zero limit uses the server default.
func (c *Client) ListTransactions(ctx context.Context, accountID string, limit, offset int) (*TransactionsResponse, error) {
	queryParams := url.Values{}
	if limit > 0 {
		queryParams.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		queryParams.Set("offset", strconv.Itoa(offset))
	}

	var resp TransactionsResponse
	path := "/api/v1/accounts/" + url.PathEscape(accountID) + "/transactions"
	if err := c.doRequestWithQuery(ctx, http.MethodGet, path, queryParams, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &resp, nil
}

// Transfer moves money between two accounts and returns the debit
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*Transaction, error) {
	var txn Transaction
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/transfers", req, &txn); err != nil {
		return nil, fmt.Errorf("failed to transfer: %w", err)
	}
	return &txn, nil
}

// Payment pays money out of an account and returns the debit
func (c *Client) Payment(ctx context.Context, req PaymentRequest) (*Transaction, error) {
	var txn Transaction
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/payments", req, &txn); err != nil {
		return nil, fmt.Errorf("failed to pay: %w", err)
	}
	return &txn, nil
}

// Health returns the health status of the server. An unhealthy server
// answers 503; its body is still returned alongside the error.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return &resp, fmt.Errorf("server unhealthy: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}
	return &resp, nil
}

// ListStreams returns the running subscription streams
func (c *Client) ListStreams(ctx context.Context) (*StreamsResponse, error) {
	var resp StreamsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/admin/streams", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	return &resp, nil
}

// doRequestWithQuery performs an HTTP request with query parameters
func (c *Client) doRequestWithQuery(ctx context.Context, method, path string, queryParams url.Values, reqBody interface{}, respBody interface{}) error {
	u := &url.URL{Path: path}
	if len(queryParams) > 0 {
		u.RawQuery = queryParams.Encode()
	}
	fullURL := c.baseURL.ResolveReference(u)

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp.StatusCode, bodyBytes)
		// Some endpoints describe their failure in the regular body.
		if respBody != nil {
			_ = json.Unmarshal(bodyBytes, respBody)
		}
		return apiErr
	}

	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}) error {
	return c.doRequestWithQuery(ctx, method, path, nil, reqBody, respBody)
}

// parseAPIError understands both the REST error body and the GraphQL
// errors envelope.
func parseAPIError(status int, body []byte) *APIError {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{StatusCode: status, Message: errResp.Message}
	}

	var gqlResp GraphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err == nil && len(gqlResp.Errors) > 0 {
		return &APIError{StatusCode: status, Message: gqlResp.Errors[0].Message}
	}

	return &APIError{StatusCode: status, Message: string(bytes.TrimSpace(body))}
}
