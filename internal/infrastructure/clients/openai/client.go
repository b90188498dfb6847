package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/pkg/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements the query analysis collaborator against the OpenAI
// API. It satisfies providers.QueryAnalyzer.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.OpenAIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// Close stops the rate limiter's refill goroutine. Safe to call more
// than once.
func (c *Client) Close() error {
	if c.limiter != nil {
		c.limiter.Stop()
	}
	return nil
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

// Analyze sends a free-text patient query to the model and parses the
// structured analysis. Any failure is returned as-is; the caller owns
// the degradation path.
func (c *Client) Analyze(ctx context.Context, query string) (*entities.QueryAnalysis, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordAnalyzerMetric(ctx, c.model, 0, 0, err)
			return nil, err
		}
		recordAnalyzerRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	payload := map[string]interface{}{
		"model": c.model,
		"input": []map[string]string{
			{"role": "system", "content": queryAnalysisSystemPrompt},
			{"role": "user", "content": buildQueryAnalysisUserPrompt(query)},
		},
		"temperature":       0.3,
		"max_output_tokens": 300,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordAnalyzerMetric(ctx, c.model, 0, time.Since(start), err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("openai request failed with status %d", resp.StatusCode)
		recordAnalyzerMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordAnalyzerMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		err := errors.New("openai response missing output text")
		recordAnalyzerMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	analysis, err := parseAnalysisText(text)
	if err != nil {
		recordAnalyzerMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, fmt.Errorf("failed to parse openai response: %w", err)
	}

	recordAnalyzerMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	analysis.Source = "openai"
	return analysis, nil
}

// parseAnalysisText decodes the model output, tolerating Markdown code
// fences around the JSON body.
func parseAnalysisText(text string) (*entities.QueryAnalysis, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	var analysis entities.QueryAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, err
	}
	if len(analysis.SearchTerms) == 0 {
		return nil, errors.New("analysis has no search terms")
	}

	switch analysis.Priority {
	case entities.PriorityRoutine, entities.PriorityUrgent, entities.PriorityEmergency, "":
	default:
		analysis.Priority = entities.PriorityRoutine
	}

	return &analysis, nil
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
		stop:   make(chan struct{}),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case bucket.tokens <- struct{}{}:
				default:
				}
			case <-bucket.stop:
				return
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

// Stop ends the refill goroutine. Idempotent; pending Wait calls keep
// draining whatever tokens remain.
func (b *tokenBucket) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
	})
}

type analyzerMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var analyzerMetricsInit = false
var analyzerMetricsState analyzerMetrics

func ensureAnalyzerMetrics() {
	if analyzerMetricsInit {
		return
	}
	meter := otel.Meter("github.com/pharmiliar/cost-engine/openai")

	requestCount, err := meter.Int64Counter(
		"ai.analyzer.request.count",
		metric.WithDescription("Number of analyzer requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.analyzer.request.duration",
		metric.WithDescription("Analyzer request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.analyzer.request.errors",
		metric.WithDescription("Number of analyzer request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.analyzer.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the analyzer rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	analyzerMetricsState = analyzerMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	analyzerMetricsInit = true
}

func recordAnalyzerMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	ensureAnalyzerMetrics()
	if !analyzerMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	analyzerMetricsState.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	analyzerMetricsState.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		analyzerMetricsState.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordAnalyzerRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureAnalyzerMetrics()
	if !analyzerMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	analyzerMetricsState.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
