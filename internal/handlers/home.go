package handlers

import (
	"log/slog"
	"net/http"
)

// HandleHome renders the landing page with the visitor's chat widget.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	wg := m.widgetFor(w, r)
	data := homePageData{
		Portal: m.portal,
		Widget: m.widgetView(wg.ID(), wg.Notices(), wg.State()),
		Year:   m.now().Year(),
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home page", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
