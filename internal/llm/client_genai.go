package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"graphtutor/internal/logging"
	"graphtutor/internal/usage"
)

// GenAIClient implements Client over the official SDK. The underlying
// client is constructed lazily so a missing credential fails at invocation
// time, matching the HTTP engine.
type GenAIClient struct {
	apiKey          string
	model           string
	temperature     float64
	maxOutputTokens int
	recorder        Recorder

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGenAIClient creates an SDK-backed client.
func NewGenAIClient(config GeminiConfig) *GenAIClient {
	def := DefaultGeminiConfig(config.APIKey)
	if strings.TrimSpace(config.Model) == "" {
		config.Model = def.Model
	}
	if config.Temperature == 0 {
		config.Temperature = def.Temperature
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = def.MaxOutputTokens
	}

	return &GenAIClient{
		apiKey:          config.APIKey,
		model:           config.Model,
		temperature:     config.Temperature,
		maxOutputTokens: config.MaxOutputTokens,
	}
}

// SetRecorder attaches a token usage recorder.
func (c *GenAIClient) SetRecorder(r Recorder) {
	c.recorder = r
}

// GetModel returns the current model.
func (c *GenAIClient) GetModel() string {
	return c.model
}

func (c *GenAIClient) get(ctx context.Context) (*genai.Client, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	c.once.Do(func() {
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if c.initErr != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", c.initErr)
	}
	return c.client, nil
}

// Complete sends a prompt and returns the completion.
func (c *GenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.CompleteWithHistory(ctx, systemPrompt, nil, userPrompt)
}

// CompleteWithHistory forwards history plus a new message in one round trip.
func (c *GenAIClient) CompleteWithHistory(ctx context.Context, systemPrompt string, history []Turn, userPrompt string) (string, error) {
	return c.generate(ctx, "CompleteWithHistory", systemPrompt, history, userPrompt, nil)
}

// CompleteWithSchema constrains the reply to a JSON schema.
func (c *GenAIClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	schemaText := strings.TrimSpace(jsonSchema)
	if schemaText == "" {
		return "", fmt.Errorf("json schema is empty")
	}
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(schemaText), &schema); err != nil {
		return "", fmt.Errorf("invalid json schema: %w", err)
	}
	return c.generate(ctx, "CompleteWithSchema", systemPrompt, nil, userPrompt, schema)
}

func (c *GenAIClient) generate(ctx context.Context, op, systemPrompt string, history []Turn, userPrompt string, schema map[string]interface{}) (string, error) {
	log := logging.Get(logging.CategoryAPI)
	startTime := time.Now()

	client, err := c.get(ctx)
	if err != nil {
		log.Errorw("genai client unavailable", "op", op, "error", err)
		return "", err
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(userPrompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.temperature)),
		MaxOutputTokens: int32(c.maxOutputTokens),
	}
	if strings.TrimSpace(systemPrompt) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = schema
	}

	result, err := client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		log.Errorw("generation failed", "op", op, "model", c.model, "error", err)
		return "", fmt.Errorf("generation failed: %w", err)
	}

	response := strings.TrimSpace(result.Text())
	if response == "" {
		return "", fmt.Errorf("no completion returned")
	}

	var promptTokens, outputTokens int
	if result.UsageMetadata != nil {
		promptTokens = int(result.UsageMetadata.PromptTokenCount)
		outputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	if c.recorder != nil {
		c.recorder.Record(c.model, usage.OperationFromContext(ctx), promptTokens, outputTokens)
	}

	log.Infow("completion finished",
		"op", op,
		"model", c.model,
		"elapsed", time.Since(startTime),
		"response_len", len(response),
		"prompt_tokens", promptTokens,
		"output_tokens", outputTokens)
	return response, nil
}
