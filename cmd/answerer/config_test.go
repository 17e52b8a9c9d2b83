package main

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/MegaGrindStone/mpp-web-ui/internal/services"
	"gopkg.in/yaml.v3"
)

func TestConfigUnmarshalYAML(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantErr  string
		wantPort string
		check    func(t *testing.T, cfg config)
	}{
		{
			name: "ollama",
			yaml: `
port: "5001"
llm:
  provider: ollama
  model: llama3.2
  host: http://gpu-box:11434
`,
			wantPort: "5001",
			check: func(t *testing.T, cfg config) {
				o, ok := cfg.LLM.(*ollamaConfig)
				if !ok {
					t.Fatalf("LLM = %T, want *ollamaConfig", cfg.LLM)
				}
				if o.Model != "llama3.2" || o.Host != "http://gpu-box:11434" {
					t.Errorf("ollama config = %+v", o)
				}
				if cfg.SystemPrompt != defaultSystemPrompt {
					t.Error("system prompt should default")
				}
			},
		},
		{
			name: "openai with parameters",
			yaml: `
encoding: legacy
systemPrompt: Jawab singkat.
llm:
  provider: openai
  model: gpt-4o-mini
  apiKey: secret
  parameters:
    temperature: 0.2
    maxTokens: 512
`,
			wantPort: "5000",
			check: func(t *testing.T, cfg config) {
				o, ok := cfg.LLM.(*openAIConfig)
				if !ok {
					t.Fatalf("LLM = %T, want *openAIConfig", cfg.LLM)
				}
				if o.APIKey != "secret" || o.Parameters.Temperature == nil || *o.Parameters.Temperature != 0.2 {
					t.Errorf("openai config = %+v", o)
				}
				if o.Parameters.MaxTokens == nil || *o.Parameters.MaxTokens != 512 {
					t.Error("maxTokens not decoded")
				}
				if cfg.Encoding != services.EncodingLegacy {
					t.Errorf("Encoding = %q", cfg.Encoding)
				}
				if cfg.SystemPrompt != "Jawab singkat." {
					t.Errorf("SystemPrompt = %q", cfg.SystemPrompt)
				}
			},
		},
		{
			name:    "missing provider",
			yaml:    "llm:\n  model: llama3.2\n",
			wantErr: "provider is required",
		},
		{
			name:    "unknown provider",
			yaml:    "llm:\n  provider: anthropic\n",
			wantErr: "unknown llm provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg config
			err := yaml.Unmarshal([]byte(tt.yaml), &cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Unmarshal() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %q, want %q", cfg.Port, tt.wantPort)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLLMConfigAnswerer(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name    string
		llm     llmConfig
		wantErr bool
	}{
		{"ollama", &ollamaConfig{BaseLLMConfig: BaseLLMConfig{Model: "llama3.2"}, Host: "http://localhost:11434"}, false},
		{"ollama without model", &ollamaConfig{}, true},
		{"openai", &openAIConfig{BaseLLMConfig: BaseLLMConfig{Model: "gpt-4o-mini"}, APIKey: "secret"}, false},
		{"openai without key", &openAIConfig{BaseLLMConfig: BaseLLMConfig{Model: "gpt-4o-mini"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.llm.answerer("prompt", slog.Default())
			if (err != nil) != tt.wantErr {
				t.Errorf("answerer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
