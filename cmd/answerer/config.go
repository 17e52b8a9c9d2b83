package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MegaGrindStone/mpp-web-ui/internal/services"
	"gopkg.in/yaml.v3"
)

type llmConfig interface {
	answerer(systemPrompt string, logger *slog.Logger) (services.Answerer, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type config struct {
	Port         string            `yaml:"port"`
	Encoding     services.Encoding `yaml:"encoding"`
	SystemPrompt string            `yaml:"systemPrompt"`
	LLM          llmConfig         `yaml:"llm"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string                    `yaml:"apiKey"`
	BaseURL       string                    `yaml:"baseURL"`
	Parameters    services.OpenAIParameters `yaml:"parameters"`
}

const defaultSystemPrompt = "Kamu adalah asisten Mall Pelayanan Publik Kota Bengkulu. " +
	"Jawab pertanyaan tentang layanan publik dengan singkat, jelas dan sopan dalam bahasa Indonesia."

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port         string            `yaml:"port"`
		Encoding     services.Encoding `yaml:"encoding"`
		SystemPrompt string            `yaml:"systemPrompt"`
		LLM          map[string]any    `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	if c.Port == "" {
		c.Port = "5000"
	}
	c.Encoding = rawConfig.Encoding
	c.SystemPrompt = rawConfig.SystemPrompt
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "ollama":
		llm = &ollamaConfig{}
	case "openai":
		llm = &openAIConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm

	return nil
}

func (o ollamaConfig) answerer(systemPrompt string, _ *slog.Logger) (services.Answerer, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	return services.NewOllama(host, o.Model, systemPrompt)
}

func (o openAIConfig) answerer(systemPrompt string, logger *slog.Logger) (services.Answerer, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	return services.NewOpenAI(apiKey, o.BaseURL, o.Model, systemPrompt, o.Parameters, logger), nil
}
