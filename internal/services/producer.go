package services

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
)

// Answerer produces the answer to a single question as a sequence of text pieces.
type Answerer interface {
	Answer(ctx context.Context, question string) iter.Seq2[string, error]
}

// Encoding selects how the producer writes events on the wire.
type Encoding string

const (
	// EncodingStructured writes JSON envelopes such as {"type":"chunk","content":"..."}.
	EncodingStructured Encoding = "structured"
	// EncodingLegacy writes raw text, [DONE] and [ERROR] sentinels.
	EncodingLegacy Encoding = "legacy"
)

const maxQuestionBody = 64 << 10

// Producer serves the ask-stream endpoint, answering each question with an event stream.
type Producer struct {
	answerer        Answerer
	encoding        Encoding
	requestIDHeader string

	logger *slog.Logger
}

// NewProducer creates a producer writing in the given encoding. An empty encoding means
// EncodingStructured.
func NewProducer(answerer Answerer, encoding Encoding, logger *slog.Logger) (Producer, error) {
	switch encoding {
	case "":
		encoding = EncodingStructured
	case EncodingStructured, EncodingLegacy:
	default:
		return Producer{}, fmt.Errorf("unknown encoding: %s", encoding)
	}
	return Producer{
		answerer:        answerer,
		encoding:        encoding,
		requestIDHeader: DefaultRequestIDHeader,
		logger:          logger.With(slog.String("module", "producer")),
	}, nil
}

// HandleAskStream answers the posted question. Failures after the stream started are sent as
// error events, since the status line is already written by then.
func (p Producer) HandleAskStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBody)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	}

	requestID := uuid.New().String()
	w.Header().Set(p.requestIDHeader, requestID)
	logger := p.logger.With(slog.String("requestID", requestID))

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		logger.Error("Failed to upgrade connection", slog.String(errLoggerKey, err.Error()))
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	logger.Info("Answering question", slog.String("question", req.Question))

	for text, err := range p.answerer.Answer(r.Context(), req.Question) {
		if err != nil {
			logger.Error("Failed to answer question", slog.String(errLoggerKey, err.Error()))
			p.send(sess, stream.Event{Kind: stream.EventError, Text: err.Error()}, logger)
			return
		}
		if !p.send(sess, stream.Event{Kind: stream.EventChunk, Text: text}, logger) {
			return
		}
	}
	if r.Context().Err() != nil {
		logger.Warn("Client went away before the answer finished")
		return
	}
	p.send(sess, stream.Event{Kind: stream.EventDone}, logger)
}

func (p Producer) send(sess *sse.Session, ev stream.Event, logger *slog.Logger) bool {
	data := stream.EncodeStructured(ev)
	if p.encoding == EncodingLegacy {
		data = stream.EncodeLegacy(ev)
	}

	msg := &sse.Message{}
	msg.AppendData(data)
	if err := sess.Send(msg); err != nil {
		logger.Error("Failed to send event",
			slog.String("kind", ev.Kind.String()),
			slog.String(errLoggerKey, err.Error()))
		return false
	}
	if err := sess.Flush(); err != nil {
		logger.Error("Failed to flush event", slog.String(errLoggerKey, err.Error()))
		return false
	}
	return true
}
