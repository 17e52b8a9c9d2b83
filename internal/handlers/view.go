package handlers

import (
	"html/template"
	"log/slog"

	"github.com/MegaGrindStone/mpp-web-ui/internal/models"
	"github.com/MegaGrindStone/mpp-web-ui/internal/render"
	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
)

type message struct {
	Role    string
	Content template.HTML
	Typing  bool
}

type widget struct {
	ID       string
	Open     bool
	Loading  bool
	Messages []message
	Notices  stream.Notices
}

type homePageData struct {
	Portal models.Portal
	Widget widget
	Year   int
}

var templateFuncs = template.FuncMap{
	"featureIcon": featureIcon,
}

// Paths of the feature card icons, drawn on a 24x24 stroked viewBox.
var featureIcons = map[string]template.HTML{
	"zap":          `<path d="M13 2 3 14h9l-1 8 10-12h-9l1-8z"/>`,
	"shield-check": `<path d="M12 22s8-4 8-10V5l-8-3-8 3v7c0 6 8 10 8 10z"/><path d="m9 12 2 2 4-4"/>`,
	"cloud":        `<path d="M17.5 19H9a7 7 0 1 1 6.71-9h1.79a4.5 4.5 0 1 1 0 9Z"/>`,
}

func featureIcon(name string) template.HTML {
	if icon, ok := featureIcons[name]; ok {
		return icon
	}
	return featureIcons["zap"]
}

// widgetView prepares st for the templates. The empty assistant message of a loading turn is
// shown as the typing notice.
func (m Main) widgetView(id string, notices stream.Notices, st stream.State) widget {
	msgs := make([]message, len(st.Transcript))
	last := len(st.Transcript) - 1
	for i, msg := range st.Transcript {
		msgs[i] = message{
			Role:    string(msg.Role),
			Content: m.renderContent(msg),
			Typing:  i == last && st.Loading && msg.Role == models.RoleAssistant && msg.Content == "",
		}
	}
	return widget{
		ID:       id,
		Open:     st.Open,
		Loading:  st.Loading,
		Messages: msgs,
		Notices:  notices,
	}
}

// renderContent formats assistant replies with the configured renderer. Visitor input is
// always shown as plain text.
func (m Main) renderContent(msg models.ChatMessage) template.HTML {
	if msg.Role == models.RoleUser {
		content, _ := render.Plain{}.Render(msg.Content)
		return content
	}
	content, err := m.renderer.Render(msg.Content)
	if err != nil {
		m.logger.Warn("Failed to render message, falling back to plain text",
			slog.String(errLoggerKey, err.Error()))
		content, _ = render.Plain{}.Render(msg.Content)
	}
	return content
}
