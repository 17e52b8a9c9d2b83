package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
)

// AskStream is the HTTP transport to the remote answering service. It posts the question
// and hands the event-stream body to the stream consumer.
type AskStream struct {
	endpoint        string
	requestIDHeader string

	client *http.Client

	logger *slog.Logger
}

// AskRequest is the body posted to the answering service.
type AskRequest struct {
	Question string `json:"question"`
}

// DefaultRequestIDHeader carries the producer's correlation id.
const DefaultRequestIDHeader = "X-Request-ID"

const (
	maxErrorBody = 4096

	errLoggerKey = "err"
)

// NewAskStream creates a transport posting to endpoint. The client must not set a total
// timeout since answers are streamed; inactivity is bounded by the stream consumer.
func NewAskStream(endpoint, requestIDHeader string, client *http.Client, logger *slog.Logger) AskStream {
	if requestIDHeader == "" {
		requestIDHeader = DefaultRequestIDHeader
	}
	if client == nil {
		client = &http.Client{}
	}
	return AskStream{
		endpoint:        endpoint,
		requestIDHeader: requestIDHeader,
		client:          client,
		logger:          logger.With(slog.String("module", "askstream")),
	}
}

// Ask implements stream.Transport.
func (a AskStream) Ask(ctx context.Context, question string) (stream.Response, error) {
	jsonBody, err := json.Marshal(AskRequest{Question: question})
	if err != nil {
		return stream.Response{}, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return stream.Response{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := a.client.Do(req)
	if err != nil {
		return stream.Response{}, fmt.Errorf("error sending request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return stream.Response{}, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return stream.Response{}, fmt.Errorf("response has no body")
	}

	requestID := resp.Header.Get(a.requestIDHeader)
	a.logger.Debug("Answer stream response",
		slog.String("requestID", requestID),
		slog.String("contentType", resp.Header.Get("Content-Type")))

	return stream.Response{
		Body:      resp.Body,
		RequestID: requestID,
	}, nil
}
