package services_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
)

type mockAnswerer struct {
	pieces []string
	err    error

	questions []string
}

func (m *mockAnswerer) Answer(_ context.Context, question string) iter.Seq2[string, error] {
	m.questions = append(m.questions, question)
	return func(yield func(string, error) bool) {
		for _, p := range m.pieces {
			if !yield(p, nil) {
				return
			}
		}
		if m.err != nil {
			yield("", m.err)
		}
	}
}

var errModelDown = errors.New("model unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// events posts question to the ask-stream server and classifies everything it answered.
func events(t *testing.T, srvURL, question string) ([]stream.Event, *http.Response) {
	t.Helper()

	resp, err := http.Post(srvURL, "application/json", strings.NewReader(`{"question":"`+question+`"}`))
	if err != nil {
		t.Fatalf("failed to post question: %v", err)
	}
	defer resp.Body.Close()

	var evs []stream.Event
	for payload, err := range stream.Frames(resp.Body) {
		if err != nil {
			t.Fatalf("failed to read frames: %v", err)
		}
		evs = append(evs, stream.Classify(payload))
	}
	return evs, resp
}
