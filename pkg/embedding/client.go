// Package embedding talks to the voice-embedding service: it extracts
// fixed-dimension voice vectors from audio and compares them, remotely or
// locally.
//
// The service exposes three endpoints:
//
//	GET  /health              → {"status": "healthy"}
//	POST /extract-embedding   → {"embedding": [...], "dimension": D}
//	POST /compare-embeddings  → {"similarity": s, "is_same_speaker": b}
//
// Extraction and comparison require an X-API-Key header. The embedding
// dimension is fixed by the service's model and treated as opaque by
// callers; the only local constraint is that compared vectors have equal
// length.
package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SameSpeakerThreshold is the cosine similarity above which two voice
// vectors are considered the same speaker. Single global decision boundary,
// shared by the local matcher and mirrored by the remote service.
const SameSpeakerThreshold = 0.75

// Request timeouts. Health is a cheap gate probe; extraction runs a model
// over seconds of audio and is allowed to take its time.
const (
	healthTimeout  = 5 * time.Second
	extractTimeout = 60 * time.Second
	compareTimeout = 30 * time.Second
)

// Sentinel errors.
var (
	// ErrNotConfigured is returned when the client has no base URL or
	// API key.
	ErrNotConfigured = errors.New("embedding: service not configured")

	// ErrUnauthorized is returned on HTTP 401. It recurs for every call
	// until credentials are fixed, so callers should surface it as a
	// configuration problem rather than retrying per speaker.
	ErrUnauthorized = errors.New("embedding: unauthorized")
)

// ServerError is a non-200, non-401 response from the embedding service,
// carrying any textual detail from the response body.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("embedding: server error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("embedding: server error (status %d)", e.StatusCode)
}

// Comparison is the remote service's verdict on two embeddings.
type Comparison struct {
	Similarity    float32 `json:"similarity"`
	IsSameSpeaker bool    `json:"is_same_speaker"`
}

// Client is an HTTP client for the voice-embedding service.
// Safe for concurrent use; Configure may be called at any time and
// atomically replaces the prior endpoint and credential.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	apiKey  string

	http *http.Client
}

// NewClient creates an unconfigured client. Call Configure before use, or
// use NewClientWith for one-shot construction.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

// NewClientWith creates a configured client.
func NewClientWith(baseURL, apiKey string) *Client {
	c := NewClient()
	c.Configure(baseURL, apiKey)
	return c
}

// Configure sets the service endpoint and credential, replacing any prior
// configuration. Idempotent.
func (c *Client) Configure(baseURL, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.apiKey = apiKey
}

// IsConfigured reports whether both a base URL and a non-empty credential
// are set.
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL != "" && c.apiKey != ""
}

func (c *Client) config() (baseURL, apiKey string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL, c.apiKey
}

// HealthCheck probes the service's health endpoint with a short timeout.
// True only on HTTP 200 with a healthy status body; any network error,
// timeout, or non-conforming body yields false. Never returns an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	baseURL, _ := c.config()
	if baseURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return false
	}
	return body.Status == "healthy"
}

// Extract sends audio to the service and returns its voice embedding.
// formatHint names the container ("wav", "mp3", ...); the pipeline always
// sends WAV.
func (c *Client) Extract(ctx context.Context, audio []byte, formatHint string) ([]float32, error) {
	if formatHint == "" {
		formatHint = "wav"
	}
	reqBody := struct {
		AudioBase64 string `json:"audio_base64"`
		Format      string `json:"format"`
	}{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		Format:      formatHint,
	}

	var respBody struct {
		Embedding []float32 `json:"embedding"`
		Dimension int       `json:"dimension"`
	}
	if err := c.post(ctx, "/extract-embedding", extractTimeout, reqBody, &respBody); err != nil {
		return nil, err
	}
	if len(respBody.Embedding) == 0 {
		return nil, &ServerError{StatusCode: http.StatusOK, Detail: "response contains no embedding"}
	}
	return respBody.Embedding, nil
}

// Compare asks the service to compare two embeddings with its own decision
// function. The pipeline normally uses the local FindBestMatch path — one
// vector transferred instead of one remote call per known profile — but the
// remote verdict is available for models whose comparison is not pure
// cosine.
func (c *Client) Compare(ctx context.Context, a, b []float32) (Comparison, error) {
	reqBody := struct {
		Embedding1 []float32 `json:"embedding1"`
		Embedding2 []float32 `json:"embedding2"`
	}{Embedding1: a, Embedding2: b}

	var out Comparison
	if err := c.post(ctx, "/compare-embeddings", compareTimeout, reqBody, &out); err != nil {
		return Comparison{}, err
	}
	return out, nil
}

// post issues an authenticated JSON POST and decodes the 200 response into
// out, mapping 401 to ErrUnauthorized and other non-200s to ServerError.
func (c *Client) post(ctx context.Context, path string, timeout time.Duration, in, out any) error {
	baseURL, apiKey := c.config()
	if baseURL == "" || apiKey == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("embedding: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("embedding: %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return &ServerError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("embedding: decode %s response: %w", path, err)
	}
	return nil
}

// readDetail pulls the optional {"detail": "..."} field out of an error
// response body, falling back to the raw text.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 1<<16))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(raw))
}
