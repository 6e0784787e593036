package draftcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/apierror"
	"github.com/JaroldEnderez/Vanity/internal/dto"

	"github.com/shopspring/decimal"
)

// API is the slice of the sessions HTTP surface the cache talks to.
type API interface {
	ListDrafts(ctx context.Context) ([]dto.SessionResponse, error)
	Create(ctx context.Context, req dto.CreateSessionRequest) (*dto.SessionResponse, error)
	UpdateMeta(ctx context.Context, id string, req dto.UpdateSessionRequest) (*dto.SessionResponse, error)
	Delete(ctx context.Context, id string) error
	AddItem(ctx context.Context, id string, req dto.AddItemRequest) (*dto.SessionResponse, error)
	RemoveItem(ctx context.Context, id, itemID string) (*dto.SessionResponse, error)
	UpdateMaterial(ctx context.Context, id, materialID string, req dto.UpdateMaterialRequest) (*dto.SessionResponse, error)
	Checkout(ctx context.Context, id string, cash *decimal.Decimal) (*dto.SessionResponse, error)
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("draftcache: server returned %d: %s", e.Status, e.Message)
}

// permanent reports whether retrying err cannot succeed.
func permanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status >= 400 && se.Status < 500
}

// HTTPClient implements API against a running server with a branch token.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) ListDrafts(ctx context.Context) ([]dto.SessionResponse, error) {
	var out []dto.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Create(ctx context.Context, req dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodPost, "/v1/sessions", req)
}

func (c *HTTPClient) UpdateMeta(ctx context.Context, id string, req dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodPatch, "/v1/sessions/"+url.PathEscape(id), req)
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) AddItem(ctx context.Context, id string, req dto.AddItemRequest) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(id)+"/items", req)
}

func (c *HTTPClient) RemoveItem(ctx context.Context, id, itemID string) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id)+"/items/"+url.PathEscape(itemID), nil)
}

func (c *HTTPClient) UpdateMaterial(ctx context.Context, id, materialID string, req dto.UpdateMaterialRequest) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodPatch, "/v1/sessions/"+url.PathEscape(id)+"/materials/"+url.PathEscape(materialID), req)
}

func (c *HTTPClient) Checkout(ctx context.Context, id string, cash *decimal.Decimal) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(id)+"/checkout", dto.CheckoutRequest{CashReceived: cash})
}

func (c *HTTPClient) session(ctx context.Context, method, path string, body interface{}) (*dto.SessionResponse, error) {
	var out dto.SessionResponse
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("draftcache: marshal body: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("draftcache: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("draftcache: server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apierror.APIError
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Error == "" {
			envelope.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Status: resp.StatusCode, Message: envelope.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("draftcache: decode response: %w", err)
	}
	return nil
}
