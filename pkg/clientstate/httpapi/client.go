// Package httpapi implements clientstate.API against the REST endpoints.
package httpapi

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

	"genius-be/pkg/clientstate"
)

// APIError is any non-2xx answer other than 403.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient targets baseURL, e.g. "http://localhost:3000/api".
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sessionPayload struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Count     struct {
		Messages int64 `json:"messages"`
	} `json:"_count"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sendPayload struct {
	SessionId string           `json:"sessionId,omitempty"`
	Messages  []messagePayload `json:"messages"`
}

func (c *Client) ListSessions(ctx context.Context) ([]clientstate.SessionSummary, error) {
	var body struct {
		Sessions []sessionPayload `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversation", nil, &body); err != nil {
		return nil, err
	}

	out := make([]clientstate.SessionSummary, len(body.Sessions))
	for i, s := range body.Sessions {
		out[i] = clientstate.SessionSummary{
			Id:           s.Id,
			Title:        s.Title,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
			MessageCount: s.Count.Messages,
		}
	}
	return out, nil
}

func (c *Client) GetHistory(ctx context.Context, sessionId string) ([]clientstate.Message, error) {
	var body struct {
		Messages []messagePayload `json:"messages"`
	}
	path := "/conversation?sessionId=" + url.QueryEscape(sessionId)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}

	out := make([]clientstate.Message, len(body.Messages))
	for i, m := range body.Messages {
		out[i] = clientstate.Message{Role: m.Role, Content: m.Content}
	}
	return out, nil
}

func (c *Client) Send(ctx context.Context, req clientstate.SendRequest) (*clientstate.SendResult, error) {
	payload := sendPayload{SessionId: req.SessionId, Messages: make([]messagePayload, len(req.Messages))}
	for i, m := range req.Messages {
		payload.Messages[i] = messagePayload{Role: m.Role, Content: m.Content}
	}

	var body struct {
		SessionId string         `json:"sessionId"`
		Message   messagePayload `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/conversation", payload, &body); err != nil {
		return nil, err
	}
	return &clientstate.SendResult{
		SessionId: body.SessionId,
		Message:   clientstate.Message{Role: body.Message.Role, Content: body.Message.Content},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %s", clientstate.ErrForbidden, errBody.Message)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
