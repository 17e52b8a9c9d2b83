package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
)

// SSE event types for widget redraws.
var (
	transcriptSSEType = sse.Type("transcript")
	loadingSSEType    = sse.Type("loading")
)

// HandleChats asks the visitor's question. The request returns as soon as the question and
// its placeholder are in the transcript; the answer keeps streaming in the background and
// reaches the browser through HandleSSE.
//
// The handler expects a "message" form field. It answers 400 for a blank message and 409 while
// the previous answer is still streaming. On success it renders the transcript partial.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	msg := r.FormValue("message")
	if strings.TrimSpace(msg) == "" {
		m.logger.Error("Message is required")
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	wg := m.widgetFor(w, r)
	if !wg.State().Open {
		wg.Open()
	}

	// The answer outlives this request, so it must not inherit the request's context.
	done, err := wg.Start(context.Background(), msg)
	if err != nil {
		switch {
		case errors.Is(err, stream.ErrBusy):
			http.Error(w, "Please wait for the current answer", http.StatusConflict)
		case errors.Is(err, stream.ErrEmptyQuestion):
			http.Error(w, "Message is required", http.StatusBadRequest)
		default:
			m.logger.Error("Failed to send question", slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	go m.await(wg.ID(), done)

	m.renderTranscript(w, wg)
}

// HandleOpen shows the visitor's widget.
func (m Main) HandleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m.widgetFor(w, r).Open()
	w.WriteHeader(http.StatusNoContent)
}

// HandleClose hides the visitor's widget, cancelling the answer being streamed.
func (m Main) HandleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if wg, ok := m.lookupWidget(r); ok {
		wg.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m Main) renderTranscript(w http.ResponseWriter, wg *stream.Widget) {
	data := m.widgetView(wg.ID(), wg.Notices(), wg.State())
	if err := m.templates.ExecuteTemplate(w, "transcript", data); err != nil {
		m.logger.Error("Failed to render transcript", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m Main) await(widgetID string, done <-chan error) {
	err := <-done
	if err == nil {
		return
	}
	if errors.Is(err, stream.ErrClosed) || errors.Is(err, stream.ErrSuperseded) {
		m.logger.Debug("Answer cancelled",
			slog.String("widget", widgetID),
			slog.String(errLoggerKey, err.Error()))
		return
	}
	m.logger.Warn("Answer failed",
		slog.String("widget", widgetID),
		slog.String(errLoggerKey, err.Error()))
}

// lookupWidget returns the widget named by the visitor's cookie.
func (m Main) lookupWidget(r *http.Request) (*stream.Widget, bool) {
	c, err := r.Cookie(widgetCookie)
	if err != nil {
		return nil, false
	}
	return m.widgets.get(c.Value, m.now())
}

// widgetFor returns the visitor's widget, creating one and setting its cookie when the
// visitor has none or it was evicted.
func (m Main) widgetFor(w http.ResponseWriter, r *http.Request) *stream.Widget {
	if wg, ok := m.lookupWidget(r); ok {
		return wg
	}

	id := uuid.New().String()
	notices := stream.NoticesFor(stream.MatchLocale(r.Header.Get("Accept-Language")))
	opts := append([]stream.WidgetOption{
		stream.WithID(id),
		stream.WithNotices(notices),
		stream.WithLogger(m.widgetLogger),
	}, m.widgetOpts...)
	wg := stream.NewWidget(m.transport, opts...)

	unsubscribe := wg.Subscribe(func(st stream.State) {
		m.publish(id, notices, st)
	})
	m.widgets.add(wg, unsubscribe, m.now())

	http.SetCookie(w, &http.Cookie{
		Name:     widgetCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(widgetMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.Debug("Widget created", slog.String("widget", id))

	return wg
}

// publish pushes st to the browsers listening to the widget. It runs while the widget holds
// its lock, so it must not call back into the widget.
func (m Main) publish(widgetID string, notices stream.Notices, st stream.State) {
	var sb strings.Builder
	if err := m.templates.ExecuteTemplate(&sb, "transcript", m.widgetView(widgetID, notices, st)); err != nil {
		m.logger.Error("Failed to render transcript",
			slog.String("widget", widgetID),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	transcript := sse.Message{Type: transcriptSSEType}
	transcript.AppendData(sb.String())
	if err := m.sseSrv.Publish(&transcript, widgetTopic(widgetID)); err != nil {
		m.logger.Error("Failed to publish transcript",
			slog.String("widget", widgetID),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	loading := sse.Message{Type: loadingSSEType}
	loading.AppendData(strconv.FormatBool(st.Loading))
	if err := m.sseSrv.Publish(&loading, widgetTopic(widgetID)); err != nil {
		m.logger.Error("Failed to publish loading state",
			slog.String("widget", widgetID),
			slog.String(errLoggerKey, err.Error()))
	}
}
