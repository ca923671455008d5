// Package push delivers notifications to device tokens through an
// FCM-compatible multicast HTTP endpoint.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"policedir/internal/platform/config"
)

// Result reports one multicast send. Invalid lists tokens the transport
// marked permanently dead; callers prune them from the directory.
type Result struct {
	SuccessCount int
	FailureCount int
	Invalid      []string
}

type Transport interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (Result, error)
}

type noopTransport struct{}

func (noopTransport) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (Result, error) {
	slog.Info("push disabled, dropping notification", "tokens", len(tokens), "title", title)
	return Result{SuccessCount: len(tokens)}, nil
}

type httpTransport struct {
	endpoint string
	key      string
	client   *http.Client
}

func New(cfg config.Config) Transport {
	if cfg.PushEndpoint == "" {
		return noopTransport{}
	}
	return &httpTransport{
		endpoint: cfg.PushEndpoint,
		key:      cfg.PushServerKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type multicastRequest struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

type multicastResponse struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
	Results      []struct {
		Token   string `json:"token"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	} `json:"results"`
}

func (t *httpTransport) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (Result, error) {
	payload, err := json.Marshal(multicastRequest{Tokens: tokens, Title: title, Body: body, Data: data})
	if err != nil {
		return Result{}, fmt.Errorf("encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.key != "" {
		req.Header.Set("Authorization", "key="+t.key)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("push endpoint returned %s", resp.Status)
	}

	var decoded multicastResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("decode push response: %w", err)
	}

	out := Result{SuccessCount: decoded.SuccessCount, FailureCount: decoded.FailureCount}
	for _, r := range decoded.Results {
		if !r.Success && tokenPermanentlyInvalid(r.Error) {
			out.Invalid = append(out.Invalid, r.Token)
		}
	}
	return out, nil
}

func tokenPermanentlyInvalid(code string) bool {
	switch code {
	case "messaging/registration-token-not-registered", "messaging/invalid-registration-token":
		return true
	}
	return false
}
