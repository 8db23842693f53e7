// Package adminclient habla con la API HTTP de support-desk en nombre del administrador.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"support-desk/internal/domain"
)

const adminKeyHeader = "X-Admin-Key"

var (
	ErrUnauthorized = errors.New("admin key rejected")
	ErrNotFound     = errors.New("message not found")
)

// Client consume los endpoints de mensajes con la clave de administrador.
type Client struct {
	baseURL  string
	adminKey string
	client   *http.Client
	logger   *zap.Logger
}

// NewClient construye un cliente apuntando a baseURL (por ejemplo http://localhost:3000).
func NewClient(baseURL, adminKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		adminKey: adminKey,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// ListMessages devuelve la cola completa de mensajes.
func (c *Client) ListMessages(ctx context.Context) ([]domain.Message, error) {
	var messages []domain.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages", nil, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// Pending filtra los mensajes que todavía no tienen respuesta.
func Pending(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if !m.Replied() {
			out = append(out, m)
		}
	}
	return out
}

// Reply responde el mensaje id.
func (c *Client) Reply(ctx context.Context, id int64, reply string) error {
	body := replyRequest{ID: id, Reply: reply}
	return c.do(ctx, http.MethodPost, "/api/messages/reply", body, nil)
}

// Health verifica que el servidor responda.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminKey != "" {
		req.Header.Set(adminKeyHeader, c.adminKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound && path != "/healthz":
		return ErrNotFound
	case resp.StatusCode >= 400:
		var apiErr errorResponse
		_ = json.Unmarshal(respBody, &apiErr)
		c.logger.Warn("api error", zap.Int("status", resp.StatusCode), zap.String("error", apiErr.Error))
		return fmt.Errorf("api http error: status=%d %s", resp.StatusCode, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

type replyRequest struct {
	ID    int64  `json:"id"`
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}
