package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/mpp-web-ui/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectAnswer(t *testing.T, a services.Answerer, question string) (string, error) {
	t.Helper()

	var answer string
	for piece, err := range a.Answer(context.Background(), question) {
		if err != nil {
			return answer, err
		}
		answer += piece
	}
	return answer, nil
}

func TestOllamaAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "jam buka?", req.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, piece := range []string{"Senin-", "Jumat ", "08:00"} {
			fmt.Fprintf(w, `{"model":"llama3.2","message":{"role":"assistant","content":%q},"done":false}`+"\n", piece)
		}
		fmt.Fprint(w, `{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true}`+"\n")
	}))
	defer srv.Close()

	o, err := services.NewOllama(srv.URL, "llama3.2", "Jawab singkat.")
	require.NoError(t, err)

	answer, err := collectAnswer(t, o, "jam buka?")
	require.NoError(t, err)
	assert.Equal(t, "Senin-Jumat 08:00", answer)
}

func TestOllamaAnswerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model not found"}`)
	}))
	defer srv.Close()

	o, err := services.NewOllama(srv.URL, "missing", "")
	require.NoError(t, err)

	_, err = collectAnswer(t, o, "jam buka?")
	assert.Error(t, err)
}

func TestOpenAIAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req struct {
			Model       string  `json:"model"`
			Stream      bool    `json:"stream"`
			Temperature float32 `json:"temperature"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.True(t, req.Stream)
		assert.InDelta(t, 0.2, req.Temperature, 0.001)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Senin-", "Jumat ", "08:00"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	temperature := float32(0.2)
	o := services.NewOpenAI("secret", srv.URL+"/v1", "gpt-4o-mini", "Jawab singkat.",
		services.OpenAIParameters{Temperature: &temperature}, discardLogger())

	answer, err := collectAnswer(t, o, "jam buka?")
	require.NoError(t, err)
	assert.Equal(t, "Senin-Jumat 08:00", answer)
}

func TestOpenAIAnswerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	o := services.NewOpenAI("bad", srv.URL+"/v1", "gpt-4o-mini", "", services.OpenAIParameters{}, discardLogger())

	_, err := collectAnswer(t, o, "jam buka?")
	assert.Error(t, err)
}
