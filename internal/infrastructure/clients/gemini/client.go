package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/activmedica/backend/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the conversational model provider against the Gemini
// generateContent API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Gemini client.
func NewClient(cfg *config.GeminiConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-pro"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// StartSession opens a conversation seeded with prior history.
func (c *Client) StartSession(history []entities.ChatMessage) providers.Conversation {
	seeded := make([]entities.ChatMessage, len(history))
	copy(seeded, history)
	return &conversation{client: c, history: seeded}
}

type conversation struct {
	client  *Client
	mu      sync.Mutex
	history []entities.ChatMessage
}

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string        `json:"role"`
	Parts []contentPart `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Send submits the message with the conversation's accumulated history as
// context. The history is only extended when the call succeeds.
func (cv *conversation) Send(ctx context.Context, message string) (string, error) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	contents := make([]content, 0, len(cv.history)+1)
	for _, msg := range cv.history {
		contents = append(contents, content{
			Role:  toGeminiRole(msg.Role),
			Parts: []contentPart{{Text: msg.Text}},
		})
	}
	contents = append(contents, content{
		Role:  "user",
		Parts: []contentPart{{Text: message}},
	})

	reply, err := cv.client.generate(ctx, contents)
	if err != nil {
		return "", err
	}

	cv.history = append(cv.history,
		entities.ChatMessage{Role: entities.ChatRoleUser, Text: message},
		entities.ChatMessage{Role: entities.ChatRoleAssistant, Text: reply},
	)
	return reply, nil
}

func (c *Client) generate(ctx context.Context, contents []content) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: contents})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordChatMetric(ctx, c.model, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordChatMetric(ctx, c.model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return "", fmt.Errorf("gemini request failed with status %d", resp.StatusCode)
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordChatMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	var text string
	for _, candidate := range envelope.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text = part.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		recordChatMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("missing candidate text"))
		return "", errors.New("gemini response missing candidate text")
	}

	recordChatMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	return text, nil
}

// Gemini uses "model" for the assistant role.
func toGeminiRole(role entities.ChatRole) string {
	if role == entities.ChatRoleAssistant {
		return "model"
	}
	return "user"
}

type chatMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
}

var chatMetricsInit = false
var chatCallMetrics chatMetrics

func ensureChatMetrics() {
	if chatMetricsInit {
		return
	}
	meter := otel.Meter("github.com/activmedica/backend/gemini")

	requestCount, err := meter.Int64Counter(
		"ai.gemini.request.count",
		metric.WithDescription("Number of Gemini requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.gemini.request.duration",
		metric.WithDescription("Gemini request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.gemini.request.errors",
		metric.WithDescription("Number of Gemini request errors"),
	)
	if err != nil {
		return
	}

	chatCallMetrics = chatMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
	}
	chatMetricsInit = true
}

func recordChatMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	ensureChatMetrics()
	if !chatMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	chatCallMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	chatCallMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		chatCallMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
