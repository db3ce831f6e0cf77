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
	"strings"
	"time"

	"github.com/martinhantha/kutt/internal/domain"
)

// ErrNotFound is returned when the server has no link with the requested id
var ErrNotFound = errors.New("link not found")

// Client represents an HTTP client for the link management API
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateLink creates a link, letting the server generate an address when none is given
func (c *Client) CreateLink(ctx context.Context, req domain.CreateLinkRequest) (*domain.Link, error) {
	var link domain.Link
	if err := c.do(ctx, http.MethodPost, "/api/links", req, http.StatusCreated, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// ListLinks retrieves one page of links
func (c *Client) ListLinks(ctx context.Context, skip, limit uint64, search string) (*domain.ListLinksResponse, error) {
	query := url.Values{}
	query.Set("skip", strconv.FormatUint(skip, 10))
	if limit > 0 {
		query.Set("limit", strconv.FormatUint(limit, 10))
	}
	if search != "" {
		query.Set("search", search)
	}

	var page domain.ListLinksResponse
	if err := c.do(ctx, http.MethodGet, "/api/links?"+query.Encode(), nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateLink edits the link with the given id
func (c *Client) UpdateLink(ctx context.Context, id int64, req domain.UpdateLinkRequest) (*domain.Link, error) {
	var link domain.Link
	if err := c.do(ctx, http.MethodPatch, "/api/links/"+strconv.FormatInt(id, 10), req, http.StatusOK, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// DeleteLink deletes the link with the given id
func (c *Client) DeleteLink(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/links/"+strconv.FormatInt(id, 10), nil, http.StatusNoContent, nil)
}

// BatchDelete deletes every listed link and returns how many were removed
func (c *Client) BatchDelete(ctx context.Context, ids []int64) (int64, error) {
	var result struct {
		Removed int64 `json:"removed"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/links/batch-delete", domain.BatchDeleteRequest{IDs: ids}, http.StatusOK, &result); err != nil {
		return 0, err
	}
	return result.Removed, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != wantStatus {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}
