package services_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MegaGrindStone/mpp-web-ui/internal/services"
	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	tests := []struct {
		name     string
		encoding services.Encoding
		wantErr  bool
	}{
		{"default", "", false},
		{"structured", services.EncodingStructured, false},
		{"legacy", services.EncodingLegacy, false},
		{"unknown", services.Encoding("xml"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.NewProducer(&mockAnswerer{}, tt.encoding, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestProducerAnswers(t *testing.T) {
	for _, enc := range []services.Encoding{services.EncodingStructured, services.EncodingLegacy} {
		t.Run(string(enc), func(t *testing.T) {
			answerer := &mockAnswerer{pieces: []string{"Senin-", "Jumat ", "08:00"}}
			p, err := services.NewProducer(answerer, enc, discardLogger())
			require.NoError(t, err)

			srv := httptest.NewServer(http.HandlerFunc(p.HandleAskStream))
			defer srv.Close()

			evs, resp := events(t, srv.URL, "jam buka?")

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))
			assert.NotEmpty(t, resp.Header.Get(services.DefaultRequestIDHeader))
			assert.Equal(t, []string{"jam buka?"}, answerer.questions)
			assert.Equal(t, []stream.Event{
				{Kind: stream.EventChunk, Text: "Senin-"},
				{Kind: stream.EventChunk, Text: "Jumat "},
				{Kind: stream.EventChunk, Text: "08:00"},
				{Kind: stream.EventDone},
			}, evs)
		})
	}
}

func TestProducerAnswerFailure(t *testing.T) {
	answerer := &mockAnswerer{pieces: []string{"Sen"}, err: errModelDown}
	p, err := services.NewProducer(answerer, services.EncodingStructured, discardLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(p.HandleAskStream))
	defer srv.Close()

	evs, _ := events(t, srv.URL, "jam buka?")

	require.Len(t, evs, 2)
	assert.Equal(t, stream.Event{Kind: stream.EventChunk, Text: "Sen"}, evs[0])
	assert.Equal(t, stream.EventError, evs[1].Kind)
	assert.Contains(t, evs[1].Text, errModelDown.Error())
}

func TestProducerRejectsBadRequests(t *testing.T) {
	p, err := services.NewProducer(&mockAnswerer{}, "", discardLogger())
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "{", http.StatusBadRequest},
		{"blank question", http.MethodPost, `{"question":"  "}`, http.StatusBadRequest},
		{"missing question", http.MethodPost, `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/ask-stream", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			p.HandleAskStream(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
