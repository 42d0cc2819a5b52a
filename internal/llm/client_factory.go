package llm

import (
	"fmt"

	"graphtutor/internal/config"
)

// NewClientFromConfig builds the engine selected by the config. An empty
// API key still yields a usable client; its calls fail at invocation time.
func NewClientFromConfig(cfg config.Config) (Client, error) {
	gc := GeminiConfig{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		Model:           cfg.Model,
		Timeout:         cfg.TimeoutDuration(),
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}

	switch cfg.Engine {
	case config.EngineGemini, "":
		return NewGeminiClientWithConfig(gc), nil
	case config.EngineGenAI:
		return NewGenAIClient(gc), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s (valid: %s, %s)", cfg.Engine, config.EngineGemini, config.EngineGenAI)
	}
}
