// Package gateway executes prompts against the remote chat-completion endpoint.
//
// One call is one POST; the gateway never retries. Retry policy belongs to
// the caller, which can tell a persistent credential problem from a flaky
// network by the failure kind.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"agentcore/internal/faults"
	"agentcore/internal/secret"
)

const (
	DefaultEndpoint = "https://openrouter.ai/api/v1/chat"
	DefaultModel    = "openai/gpt-3.5-turbo"

	maxResponseBytes = 8 << 20
	contentPath      = "choices.0.message.content"
)

// Config tunes a Gateway. Zero values select defaults.
type Config struct {
	Endpoint string
	// Model is the fixed upstream model identifier sent with every request.
	Model string
	// CredentialKey names the bearer token in Secrets; defaults to secret.OpenRouterKey.
	CredentialKey string
	Secrets       secret.Store
	HTTPClient    *http.Client
	Timeout       time.Duration
	Logger        zerolog.Logger
}

// Gateway is the remote inference client.
type Gateway struct {
	endpoint string
	model    string
	key      string
	secrets  secret.Store
	client   *http.Client
	log      zerolog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// New builds a Gateway.
func New(cfg Config) *Gateway {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.CredentialKey == "" {
		cfg.CredentialKey = secret.OpenRouterKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Gateway{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		key:      cfg.CredentialKey,
		secrets:  cfg.Secrets,
		client:   client,
		log:      cfg.Logger.With().Str("component", "gateway").Logger(),
	}
}

// Endpoint returns the chat endpoint URL.
func (g *Gateway) Endpoint() string { return g.endpoint }

// TestConnection reports whether a credential is configured. It does not
// contact the endpoint.
func (g *Gateway) TestConnection(context.Context) bool {
	return secret.Has(g.secrets, g.key)
}

func (g *Gateway) token() (string, error) {
	if g.secrets == nil {
		return "", faults.ErrMissingCredential
	}
	v, ok, err := g.secrets.Get(g.key)
	if err != nil {
		return "", faults.IOFailure("read credential", err)
	}
	if !ok || v == "" {
		return "", faults.ErrMissingCredential
	}
	return v, nil
}

// Execute sends prompt as a single user message and returns the first
// choice's content. modelID identifies the caller's logical model for logs;
// the upstream model is the configured one.
func (g *Gateway) Execute(ctx context.Context, modelID, prompt string) (string, error) {
	tok, err := g.token()
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(chatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", faults.New(faults.KindInternal, "gateway", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", faults.New(faults.KindHTTPFailure, "gateway", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		g.log.Warn().Err(err).Str("model", modelID).Msg("chat request failed")
		return "", faults.New(faults.KindHTTPFailure, "gateway", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	requestDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.log.Warn().Int("status", resp.StatusCode).Str("model", modelID).Str("body", snippet(data)).Msg("chat request rejected")
		return "", faults.HTTPFailure(resp.StatusCode)
	}
	if err != nil {
		return "", faults.MalformedResponse(fmt.Errorf("read body: %w", err))
	}
	text, err := parseContent(data)
	if err != nil {
		g.log.Warn().Err(err).Str("model", modelID).Msg("unexpected chat response shape")
		return "", err
	}
	g.log.Debug().Str("model", modelID).Int("chars", len(text)).Dur("dur", time.Since(start)).Msg("chat response")
	return text, nil
}

// parseContent extracts choices[0].message.content, which must be a string.
func parseContent(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", faults.MalformedResponse(fmt.Errorf("invalid JSON"))
	}
	res := gjson.GetBytes(data, contentPath)
	if !res.Exists() {
		return "", faults.MalformedResponse(fmt.Errorf("missing %s", contentPath))
	}
	if res.Type != gjson.String {
		return "", faults.MalformedResponse(fmt.Errorf("%s is %s, not a string", contentPath, res.Type))
	}
	return res.String(), nil
}

func snippet(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
