package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"graphtutor/internal/logging"
	"graphtutor/internal/usage"
)

// minRequestSpacing keeps a floor between consecutive requests so bursts of
// UI events don't trip the API rate limiter.
const minRequestSpacing = 100 * time.Millisecond

// GeminiClient implements Client against the generative-language REST API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	temperature     float64
	maxOutputTokens int
	httpClient      *http.Client
	recorder        Recorder

	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-3-flash-preview",
		Timeout:         2 * time.Minute,
		Temperature:     0.7,
		MaxOutputTokens: 8192,
	}
}

// NewGeminiClient creates a client with default configuration. An empty
// apiKey yields an unauthenticated client whose calls fail at invocation
// time, not at construction.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a client with custom configuration.
func NewGeminiClientWithConfig(config GeminiConfig) *GeminiClient {
	def := DefaultGeminiConfig(config.APIKey)
	if strings.TrimSpace(config.Model) == "" {
		config.Model = def.Model
	}
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.Temperature == 0 {
		config.Temperature = def.Temperature
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = def.MaxOutputTokens
	}

	return &GeminiClient{
		apiKey:          config.APIKey,
		baseURL:         config.BaseURL,
		model:           config.Model,
		temperature:     config.Temperature,
		maxOutputTokens: config.MaxOutputTokens,
		httpClient:      &http.Client{Timeout: config.Timeout},
	}
}

// SetRecorder attaches a token usage recorder.
func (c *GeminiClient) SetRecorder(r Recorder) {
	c.recorder = r
}

// SetModel changes the model used for completions.
func (c *GeminiClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string {
	return c.model
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.CompleteWithHistory(ctx, systemPrompt, nil, userPrompt)
}

// CompleteWithHistory sends accumulated history plus a new message in one
// round trip.
func (c *GeminiClient) CompleteWithHistory(ctx context.Context, systemPrompt string, history []Turn, userPrompt string) (string, error) {
	req := c.buildRequest(systemPrompt, history, userPrompt)
	return c.generate(ctx, "CompleteWithHistory", req)
}

// CompleteWithSchema sends a prompt and enforces a JSON schema on the
// response via generationConfig.response_schema.
func (c *GeminiClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	schemaText := strings.TrimSpace(jsonSchema)
	if schemaText == "" {
		return "", fmt.Errorf("json schema is empty")
	}
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(schemaText), &schema); err != nil {
		return "", fmt.Errorf("invalid json schema: %w", err)
	}

	req := c.buildRequest(systemPrompt, nil, userPrompt)
	req.GenerationConfig.ResponseMimeType = "application/json"
	req.GenerationConfig.ResponseSchema = schema
	return c.generate(ctx, "CompleteWithSchema", req)
}

func (c *GeminiClient) buildRequest(systemPrompt string, history []Turn, userPrompt string) geminiRequest {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, turn := range history {
		role := turn.Role
		if role != RoleModel {
			role = RoleUser
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Text}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  RoleUser,
		Parts: []geminiPart{{Text: userPrompt}},
	})

	req := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		req.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt}},
		}
	}
	return req
}

// generate performs the HTTP round trip with a retry loop for transient
// failures and rate limits.
func (c *GeminiClient) generate(ctx context.Context, op string, reqBody geminiRequest) (string, error) {
	// Apply the client timeout when the caller supplies no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	log := logging.Get(logging.CategoryAPI)
	startTime := time.Now()

	if c.apiKey == "" {
		log.Errorw("API key not configured", "op", op)
		return "", fmt.Errorf("API key not configured")
	}

	c.pace()

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode == http.StatusBadRequest && mentionsResponseSchema(string(body)) {
				return "", ErrSchemaNotSupported
			}
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var apiResp geminiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if apiResp.Error != nil {
			return "", fmt.Errorf("API error: %s", apiResp.Error.Message)
		}
		if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		var result strings.Builder
		for _, part := range apiResp.Candidates[0].Content.Parts {
			result.WriteString(part.Text)
		}
		response := strings.TrimSpace(result.String())

		if c.recorder != nil {
			c.recorder.Record(c.model, usage.OperationFromContext(ctx),
				apiResp.UsageMetadata.PromptTokenCount,
				apiResp.UsageMetadata.CandidatesTokenCount)
		}

		log.Infow("completion finished",
			"op", op,
			"model", c.model,
			"elapsed", time.Since(startTime),
			"response_len", len(response),
			"prompt_tokens", apiResp.UsageMetadata.PromptTokenCount,
			"output_tokens", apiResp.UsageMetadata.CandidatesTokenCount)
		return response, nil
	}

	log.Errorw("max retries exceeded", "op", op, "elapsed", time.Since(startTime), "error", lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// pace enforces the minimum spacing between requests.
func (c *GeminiClient) pace() {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestSpacing {
		time.Sleep(minRequestSpacing - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}

func mentionsResponseSchema(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "response_schema") ||
		strings.Contains(lower, "responseschema") ||
		strings.Contains(lower, "response_mime_type") ||
		strings.Contains(lower, "responsemimetype")
}
