package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	mppwebui "github.com/MegaGrindStone/mpp-web-ui"
	"github.com/MegaGrindStone/mpp-web-ui/internal/models"
	"github.com/MegaGrindStone/mpp-web-ui/internal/render"
	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
	"github.com/tmaxmax/go-sse"
)

// Main serves the landing page and the chat widget. Every browser gets its own widget, whose
// transcript redraws are pushed over server-sent events.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template
	renderer  render.Renderer

	transport  stream.Transport
	widgetOpts []stream.WidgetOption
	widgets    *registry

	portal models.Portal
	now    func() time.Time

	logger       *slog.Logger
	widgetLogger *slog.Logger
}

const (
	widgetCookie   = "mpp_widget"
	widgetIDParam  = "widget_id"
	widgetMaxAge   = 24 * time.Hour
	shutdownPeriod = 5 * time.Second

	errLoggerKey = "err"
)

// NewMain creates the portal handlers. Widgets are created with opts on top of the id, the
// notices matching the visitor's language, and the logger.
func NewMain(
	transport stream.Transport,
	renderer render.Renderer,
	portal models.Portal,
	logger *slog.Logger,
	opts ...stream.WidgetOption,
) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(
		mppwebui.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				widgetID := s.Req.URL.Query().Get(widgetIDParam)
				if widgetID == "" {
					return sse.Subscription{}, false
				}
				// The default topic carries the shutdown notice to every browser.
				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      []string{sse.DefaultTopic, widgetTopic(widgetID)},
				}, true
			},
		},
		templates:    tmpl,
		renderer:     renderer,
		transport:    transport,
		widgetOpts:   opts,
		widgets:      newRegistry(),
		portal:       portal,
		now:          time.Now,
		logger:       logger.With(slog.String("module", "handlers")),
		widgetLogger: logger,
	}, nil
}

func widgetTopic(widgetID string) string {
	return fmt.Sprintf("widget-%s", widgetID)
}

// HandleSSE streams the transcript redraws of the widget named by the widget_id query
// parameter. Unknown widgets are refused.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	widgetID := r.URL.Query().Get(widgetIDParam)
	if widgetID == "" {
		http.Error(w, "widget_id is required", http.StatusBadRequest)
		return
	}
	if _, ok := m.widgets.get(widgetID, m.now()); !ok {
		http.Error(w, "Unknown widget", http.StatusNotFound)
		return
	}
	m.sseSrv.ServeHTTP(w, r)
}

// Sweep closes widgets idle for longer than ttl, checking every interval, until ctx is done.
func (m Main) Sweep(ctx context.Context, interval, ttl time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			evicted := m.widgets.evict(m.now().Add(-ttl))
			for _, e := range evicted {
				e.close()
			}
			if len(evicted) > 0 {
				m.logger.Debug("Evicted idle widgets",
					slog.Int("count", len(evicted)),
					slog.Int("remaining", m.widgets.len()))
			}
		}
	}
}

// Shutdown tells every connected browser to stop listening, cancels the answers still
// streaming and closes the SSE server, waiting at most five seconds for its connections.
func (m Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeWidget")}
	// Browsers drop events without data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	for _, entry := range m.widgets.drain() {
		entry.close()
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownPeriod)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
