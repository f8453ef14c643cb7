package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api-inference.huggingface.co"
	defaultUserAgent = "smartappt-voice-agent/0.1"
)

// ErrNoLabel is returned when the model replied but produced no usable label.
var ErrNoLabel = errors.New("classify: no label in model response")

// Result is the normalized outcome of one classification call. Exactly one of
// Label or Err is meaningful; callers must not inspect raw provider payloads.
type Result struct {
	Label string
	Err   error
}

// OK reports whether the classification produced a usable label.
func (r Result) OK() bool {
	return r.Err == nil && r.Label != ""
}

// Config controls how the classifier client behaves.
type Config struct {
	BaseURL        string
	APIToken       string
	IntentModel    string
	SentimentModel string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
	UserAgent      string
}

// Client calls Hugging Face Inference API text-classification models.
type Client struct {
	baseURL        string
	apiToken       string
	intentModel    string
	sentimentModel string
	httpClient     *http.Client
	logger         *slog.Logger
	userAgent      string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.IntentModel) == "" || strings.TrimSpace(cfg.SentimentModel) == "" {
		return nil, errors.New("classify: intent and sentiment model names are required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:        baseURL,
		apiToken:       cfg.APIToken,
		intentModel:    cfg.IntentModel,
		sentimentModel: cfg.SentimentModel,
		httpClient:     httpClient,
		logger:         logger,
		userAgent:      userAgent,
	}, nil
}

// ClassifyIntent runs the intent model over the utterance.
func (c *Client) ClassifyIntent(ctx context.Context, text string) Result {
	return c.classify(ctx, c.intentModel, text)
}

// ClassifySentiment runs the sentiment model over the utterance.
func (c *Client) ClassifySentiment(ctx context.Context, text string) Result {
	return c.classify(ctx, c.sentimentModel, text)
}

func (c *Client) classify(ctx context.Context, model, text string) Result {
	body, err := json.Marshal(struct {
		Inputs string `json:"inputs"`
	}{Inputs: text})
	if err != nil {
		return Result{Err: fmt.Errorf("classify: marshal request: %w", err)}
	}
	url := fmt.Sprintf("%s/models/%s", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Errorf("classify: build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("classify: call %s: %w", model, err)}
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Err: fmt.Errorf("classify: read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("classifier returned non-200", "model", model, "status", resp.StatusCode)
		return Result{Err: fmt.Errorf("classify: %s returned status %d", model, resp.StatusCode)}
	}

	label, err := extractLabel(payload)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Label: strings.ToLower(label)}
}

// extractLabel normalizes the inference API's loosely shaped replies. The API
// returns either [{"label":...,"score":...},...], a nested
// [[{"label":...},...]] variant, or an {"error": ...} object.
func extractLabel(payload []byte) (string, error) {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Error != "" {
		return "", fmt.Errorf("classify: model error: %s", apiErr.Error)
	}

	type scored struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	var flat []scored
	if err := json.Unmarshal(payload, &flat); err == nil && len(flat) > 0 && flat[0].Label != "" {
		return flat[0].Label, nil
	}
	var nested [][]scored
	if err := json.Unmarshal(payload, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 && nested[0][0].Label != "" {
		return nested[0][0].Label, nil
	}
	var single scored
	if err := json.Unmarshal(payload, &single); err == nil && single.Label != "" {
		return single.Label, nil
	}
	return "", ErrNoLabel
}
