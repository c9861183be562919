// Package provider defines the factory for selecting and constructing the
// LLM generation backend at runtime. Sections are produced with deterministic
// sampling parameters fixed here at construction time — they are not tunable
// per call. Supported backends: Ollama, OpenAI, Azure OpenAI, AWS Bedrock,
// Google Gemini.
package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/cloudwego/eino/components/model"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Model is the model name or deployment ID to use (e.g. "gpt-4o", "llama3").
	Model string

	// BaseURL overrides the default API endpoint (required for Ollama and Azure).
	BaseURL string

	// APIKey is the authentication credential for the selected provider.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// MaxTokens caps the number of tokens the model may generate per section.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0). Kept low so
	// regenerating a section stays comparable across runs.
	Temperature float32
}

// Validate checks that the config names a known backend with a model.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama, BackendOpenAI, BackendAzure, BackendBedrock, BackendGemini:
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: ollama, openai, azure, bedrock, gemini", c.Backend)
	}
	if c.Model == "" && c.AzureDeployment == "" {
		return fmt.Errorf("provider: model name is required for backend %q", c.Backend)
	}
	return nil
}

// NewFromEnv constructs a ChatModel by reading provider configuration from
// environment variables. MODEL_PROVIDER selects the backend; each provider
// uses its own native credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER              = ollama | openai | azure | bedrock | gemini (default: ollama)
//
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o)
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Bedrock: BEDROCK_API_KEY, BEDROCK_ENDPOINT, BEDROCK_MODEL_ID
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-1.5-pro)
//
//	Shared:  MODEL_MAX_TOKENS (default: 4096), MODEL_TEMPERATURE (default: 0.2)
func NewFromEnv(ctx context.Context) (model.ToolCallingChatModel, error) {
	backend := Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendOllama)))

	cfg := &Config{
		Backend:     backend,
		MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 4096),
		Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.2),
	}

	switch backend {
	case BackendOllama:
		cfg.BaseURL = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		cfg.Model = getEnvOrDefault("OLLAMA_MODEL", "llama3")
	case BackendOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.Model = getEnvOrDefault("OPENAI_MODEL", "gpt-4o")
	case BackendAzure:
		cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		cfg.BaseURL = os.Getenv("AZURE_OPENAI_ENDPOINT")
		cfg.AzureDeployment = os.Getenv("AZURE_OPENAI_DEPLOYMENT")
		cfg.AzureAPIVersion = getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01")
	case BackendBedrock:
		cfg.APIKey = os.Getenv("BEDROCK_API_KEY")
		cfg.BaseURL = os.Getenv("BEDROCK_ENDPOINT")
		cfg.Model = os.Getenv("BEDROCK_MODEL_ID")
	case BackendGemini:
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
		cfg.Model = getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-pro")
	}

	return New(ctx, cfg)
}

// New constructs a ChatModel from an explicit Config, delegating to the
// appropriate backend constructor. It validates the config first so callers
// get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendBedrock:
		return newBedrock(ctx, cfg)
	case BackendGemini:
		return newGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Backend)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
