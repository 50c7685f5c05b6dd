package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Envelope is the uniform backend response shape. updateStatus may
// additionally carry a top-level warn message.
type Envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
	Warn  string          `json:"warn,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

// APIError is a failure the backend reported inside the envelope
// (ok=false), including passcode rejections.
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Client wraps the action-based order-management API. One HTTP call
// per invocation, no retries, no caching; callers decide how to react.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, logger: logger}
}

// Get calls the given action with optional query params and returns
// the envelope's data payload.
func (c *Client) Get(ctx context.Context, action string, params map[string]string) (json.RawMessage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("action", action).
		SetQueryParams(params)

	resp, err := req.Get("")
	if err != nil {
		c.logger.Debug("API call failed",
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get %s: %w", action, err)
	}
	env, err := decodeEnvelope(action, resp.Body())
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Post calls the given action with a JSON body and returns the whole
// envelope (updateStatus responses carry fields beside data).
func (c *Client) Post(ctx context.Context, action string, body any) (*Envelope, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("action", action).
		SetBody(body).
		Post("")
	if err != nil {
		c.logger.Error("API call failed",
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, fmt.Errorf("post %s: %w", action, err)
	}
	return decodeEnvelope(action, resp.Body())
}

func decodeEnvelope(action string, body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	if !env.OK {
		msg := "API error"
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return nil, &APIError{Action: action, Message: msg}
	}
	return &env, nil
}

// --- typed actions ---

type ordersData struct {
	Rows []models.OrderRecord `json:"rows"`
}

// Orders fetches the full row set. mode is "pending" or "all"; zero
// limit leaves the backend default.
func (c *Client) Orders(ctx context.Context, mode string, limit int) ([]models.OrderRecord, error) {
	params := map[string]string{}
	if mode != "" {
		params["mode"] = mode
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	raw, err := c.Get(ctx, "orders", params)
	if err != nil {
		return nil, err
	}
	var d ordersData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode orders rows: %w", err)
	}
	return d.Rows, nil
}

// PendingCount fetches the server-side pending order count.
func (c *Client) PendingCount(ctx context.Context) (int, error) {
	raw, err := c.Get(ctx, "pendingCount", nil)
	if err != nil {
		return 0, err
	}
	var d struct {
		PendingCount int `json:"pendingCount"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return 0, fmt.Errorf("decode pendingCount: %w", err)
	}
	return d.PendingCount, nil
}

// Version fetches the monotonic change token.
func (c *Client) Version(ctx context.Context) (int64, error) {
	raw, err := c.Get(ctx, "version", nil)
	if err != nil {
		return 0, err
	}
	var d struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return 0, fmt.Errorf("decode version: %w", err)
	}
	return d.Version, nil
}

// AlarmURL fetches the optional external alert clip location. An
// empty string means the backend has none configured.
func (c *Client) AlarmURL(ctx context.Context) (string, error) {
	raw, err := c.Get(ctx, "alarmUrl", nil)
	if err != nil {
		return "", err
	}
	var d struct {
		AlarmMp3URL string `json:"alarmMp3Url"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return "", fmt.Errorf("decode alarmUrl: %w", err)
	}
	return d.AlarmMp3URL, nil
}

// UpdateStatusResult is the outcome of an approved step transition.
type UpdateStatusResult struct {
	Status string `json:"status"`
	Warn   string `json:"-"`
}

// UpdateStatus posts a passcode-gated step transition. A rejected
// passcode surfaces as *APIError.
func (c *Client) UpdateStatus(ctx context.Context, id int64, step models.Step, passcode string) (*UpdateStatusResult, error) {
	env, err := c.Post(ctx, "updateStatus", map[string]any{
		"id":       id,
		"step":     int(step),
		"passcode": passcode,
	})
	if err != nil {
		return nil, err
	}
	var res UpdateStatusResult
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &res); err != nil {
			return nil, fmt.Errorf("decode updateStatus result: %w", err)
		}
	}
	res.Warn = env.Warn
	return &res, nil
}

// SlipData is the generated PDF slip payload.
type SlipData struct {
	B64      string `json:"b64"`
	Filename string `json:"filename"`
}

// Slip requests the PDF slip for one order. The slip action takes no
// passcode.
func (c *Client) Slip(ctx context.Context, id int64) (*SlipData, error) {
	env, err := c.Post(ctx, "slip", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	var d SlipData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, fmt.Errorf("decode slip payload: %w", err)
	}
	return &d, nil
}
