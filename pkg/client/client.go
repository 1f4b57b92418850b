package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terra-clan/carprice-engine/internal/models"
)

// Client is a Go SDK for the carprice-engine API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new carprice-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.Status, e.Code, e.Message)
}

// IsValidation reports whether the server rejected the input attributes
func (e *APIError) IsValidation() bool {
	return e.Code == "validation_error"
}

// Schema describes the feature layout the server encodes to
type Schema struct {
	Columns           []string              `json:"columns"`
	NumericFields     []string              `json:"numeric_fields"`
	CategoricalFields []string              `json:"categorical_fields"`
	ModelFeatures     int                   `json:"model_features"`
	NumericInputs     []models.NumericInput `json:"numeric_inputs"`
}

// Catalog is the category universe of the reference data
type Catalog struct {
	Fields        map[string][]string `json:"fields"`
	ReferenceRows int                 `json:"reference_rows"`
}

// Readiness reports which artifacts the server runs on
type Readiness struct {
	Status   string    `json:"status"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Columns  int       `json:"columns"`
}

// Predict estimates the price of one car
func (c *Client) Predict(ctx context.Context, attrs models.CarAttributes) (*models.Prediction, error) {
	var p models.Prediction
	if err := c.do(ctx, http.MethodPost, "/api/v1/predictions", attrs, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode returns the feature vector the server would feed to the model
func (c *Client) Encode(ctx context.Context, attrs models.CarAttributes) (*models.Vector, error) {
	var v models.Vector
	if err := c.do(ctx, http.MethodPost, "/api/v1/encode", attrs, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Schema retrieves the expected columns and input bounds
func (c *Client) Schema(ctx context.Context) (*Schema, error) {
	var s Schema
	if err := c.do(ctx, http.MethodGet, "/api/v1/schema", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Catalog retrieves the known values of every categorical field
func (c *Client) Catalog(ctx context.Context) (*Catalog, error) {
	var cat Catalog
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog", nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// CatalogField retrieves the known values of one categorical field
func (c *Client) CatalogField(ctx context.Context, field string) ([]string, error) {
	var result struct {
		Values []string `json:"values"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog/"+url.PathEscape(field), nil, &result); err != nil {
		return nil, err
	}
	return result.Values, nil
}

// Ready reports whether the server has its artifacts loaded
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	var r Readiness
	if err := c.do(ctx, http.MethodGet, "/ready", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do performs an HTTP request and unwraps the response envelope into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("HTTP %d: unexpected response: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if !envelope.Success || resp.StatusCode >= 400 {
		apiErr := envelope.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown", Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
