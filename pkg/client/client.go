package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/betbot/transferdesk/internal/session"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// APIError is a non-2xx response from walletd.
type APIError struct {
	Status  int
	Kind    session.Kind `json:"kind"`
	Message string       `json:"error"`
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("walletd %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("walletd %d: %s", e.Status, e.Message)
}

// Client talks to the walletd HTTP API.
type Client struct {
	client *resty.Client
}

func New(host string) *Client {
	host = strings.TrimSuffix(host, "/")

	// Only idempotent reads are retried; a retried submit could send twice.
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(5*time.Minute).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "transferctl").
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || resp.StatusCode() >= 500
		})

	return &Client{client: client}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	req := c.client.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, endpoint)
	}
	if resp.IsError() {
		apiErr, ok := resp.Error().(*APIError)
		if !ok || apiErr.Message == "" {
			apiErr = &APIError{Message: strings.TrimSpace(string(resp.Body()))}
		}
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

func (c *Client) Snapshot(ctx context.Context) (*session.Snapshot, error) {
	var out session.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Connect(ctx context.Context, mode session.AccessMode) (*session.Snapshot, error) {
	var out session.Snapshot
	if err := c.do(ctx, http.MethodPost, "/api/session/connect", map[string]any{"mode": mode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDraft(ctx context.Context, field, value string) (*session.TransferDraft, error) {
	var out session.TransferDraft
	body := map[string]string{"field": field, "value": value}
	if err := c.do(ctx, http.MethodPut, "/api/session/draft", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit blocks until the transfer is mined unless async is set.
func (c *Client) Submit(ctx context.Context, async bool) (*session.Snapshot, error) {
	endpoint := "/api/session/submit"
	if async {
		endpoint += "?async=true"
	}
	var out session.Snapshot
	if err := c.do(ctx, http.MethodPost, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type transfersResponse struct {
	Transfers     []session.TransferRecord `json:"transfers"`
	HistoryStatus session.HistoryStatus    `json:"historyStatus"`
}

// Transfers lists the transfer history; refresh re-reads it from the contract first.
func (c *Client) Transfers(ctx context.Context, refresh bool) ([]session.TransferRecord, error) {
	method, endpoint := http.MethodGet, "/api/transfers"
	if refresh {
		method, endpoint = http.MethodPost, "/api/transfers/refresh"
	}
	var out transfersResponse
	if err := c.do(ctx, method, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Transfers, nil
}
