package huggingface

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/activmedica/backend/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Client implements the image captioning provider against a hosted
// image-to-text inference endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates a new captioning client.
func NewClient(cfg *config.HuggingFaceConfig) (*Client, error) {
	if cfg == nil || cfg.Model == "" {
		return nil, errors.New("caption model is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 50
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	MaxNewTokens int `json:"max_new_tokens"`
}

type inferenceResult struct {
	GeneratedText string `json:"generated_text"`
}

// Caption generates a diagnostic caption for one image. The image must be
// three-channel JPEG; output length is bounded by the model's generation cap.
func (c *Client) Caption(ctx context.Context, imageBytes []byte) (string, error) {
	payload := inferenceRequest{
		Inputs: base64.StdEncoding.EncodeToString(imageBytes),
		Parameters: inferenceParameters{
			MaxNewTokens: c.maxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordCaptionMetric(ctx, c.model, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordCaptionMetric(ctx, c.model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return "", fmt.Errorf("caption request failed with status %d", resp.StatusCode)
	}

	var results []inferenceResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		recordCaptionMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	if len(results) == 0 || strings.TrimSpace(results[0].GeneratedText) == "" {
		recordCaptionMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("missing generated text"))
		return "", errors.New("caption response missing generated text")
	}

	recordCaptionMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	return strings.TrimSpace(results[0].GeneratedText), nil
}

type captionMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
}

var captionMetricsInit = false
var captionCallMetrics captionMetrics

func ensureCaptionMetrics() {
	if captionMetricsInit {
		return
	}
	meter := otel.Meter("github.com/activmedica/backend/huggingface")

	requestCount, err := meter.Int64Counter(
		"ai.caption.request.count",
		metric.WithDescription("Number of caption requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.caption.request.duration",
		metric.WithDescription("Caption request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.caption.request.errors",
		metric.WithDescription("Number of caption request errors"),
	)
	if err != nil {
		return
	}

	captionCallMetrics = captionMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
	}
	captionMetricsInit = true
}

func recordCaptionMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	ensureCaptionMetrics()
	if !captionMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "huggingface"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	captionCallMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	captionCallMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		captionCallMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
