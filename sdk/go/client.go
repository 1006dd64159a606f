package growthdesksdk

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
)

// Client is a minimal GrowthDesk HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Strategy represents the API strategy model (partial).
type Strategy struct {
	ID             string `json:"id"`
	EventCompanyID string `json:"event_company_id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	Version        int    `json:"version"`
}

// StrategyItem represents one reviewable line of a strategy.
type StrategyItem struct {
	ID         string `json:"id"`
	StrategyID string `json:"strategy_id"`
	Title      string `json:"title"`
	SortOrder  int    `json:"sort_order"`
	Status     string `json:"status"`
}

// ItemDecision is the result of reviewing an item.
type ItemDecision struct {
	Item            StrategyItem `json:"item"`
	Strategy        Strategy     `json:"strategy"`
	StrategyChanged bool         `json:"strategy_changed"`
}

// Deliverable represents the API deliverable model (partial).
type Deliverable struct {
	ID             string `json:"id"`
	EventCompanyID string `json:"event_company_id"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	Version        int    `json:"version"`
}

// Notification is one inbox entry.
type Notification struct {
	ID      int64  `json:"id"`
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
	Read    bool   `json:"read"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateStrategy creates a draft strategy.
func (c *Client) CreateStrategy(ctx context.Context, eventCompanyID, title string) (Strategy, error) {
	body := map[string]any{
		"event_company_id": eventCompanyID,
		"title":            title,
	}
	var resp Strategy
	err := c.do(ctx, http.MethodPost, "v1/strategies", body, &resp)
	return resp, err
}

// AddItem appends an item to a strategy.
func (c *Client) AddItem(ctx context.Context, strategyID, title string) (StrategyItem, error) {
	body := map[string]any{"title": title}
	var resp StrategyItem
	endpoint := fmt.Sprintf("v1/strategies/%s/items", url.PathEscape(strategyID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// SubmitStrategy sends a draft strategy to client review.
func (c *Client) SubmitStrategy(ctx context.Context, strategyID string) (Strategy, error) {
	var resp Strategy
	endpoint := fmt.Sprintf("v1/strategies/%s/submit", url.PathEscape(strategyID))
	err := c.do(ctx, http.MethodPost, endpoint, struct{}{}, &resp)
	return resp, err
}

// ResubmitStrategy starts a new review round after changes were requested.
func (c *Client) ResubmitStrategy(ctx context.Context, strategyID string) (Strategy, error) {
	var resp Strategy
	endpoint := fmt.Sprintf("v1/strategies/%s/resubmit", url.PathEscape(strategyID))
	err := c.do(ctx, http.MethodPost, endpoint, struct{}{}, &resp)
	return resp, err
}

// ReviewItem records a decision (approved, rejected, modified) on an item.
func (c *Client) ReviewItem(ctx context.Context, itemID, status string) (ItemDecision, error) {
	body := map[string]any{"status": status}
	var resp ItemDecision
	endpoint := fmt.Sprintf("v1/items/%s/status", url.PathEscape(itemID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// CreateDeliverable creates a draft deliverable.
func (c *Client) CreateDeliverable(ctx context.Context, eventCompanyID, title, deliverableType string) (Deliverable, error) {
	body := map[string]any{
		"event_company_id": eventCompanyID,
		"title":            title,
		"type":             deliverableType,
	}
	var resp Deliverable
	err := c.do(ctx, http.MethodPost, "v1/deliverables", body, &resp)
	return resp, err
}

// DeliverableAction invokes one of the workflow actions: submit, approve,
// request-changes, resubmit, deliver.
func (c *Client) DeliverableAction(ctx context.Context, deliverableID, action string) (Deliverable, error) {
	var resp Deliverable
	endpoint := fmt.Sprintf("v1/deliverables/%s/%s", url.PathEscape(deliverableID), action)
	err := c.do(ctx, http.MethodPost, endpoint, struct{}{}, &resp)
	return resp, err
}

// Notifications returns the caller's notifications.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool, limit int) ([]Notification, error) {
	endpoint := "v1/notifications"
	params := url.Values{}
	if unreadOnly {
		params.Set("unread_only", "true")
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp []Notification
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MarkRead marks one notification read.
func (c *Client) MarkRead(ctx context.Context, notificationID int64) error {
	endpoint := fmt.Sprintf("v1/notifications/%d/read", notificationID)
	return c.do(ctx, http.MethodPost, endpoint, struct{}{}, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
