package stream

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notices are the fixed user-facing strings of the chat widget.
type Notices struct {
	// ProcessingError replaces the assistant message when the producer reports an error.
	ProcessingError string
	// ConnectionError replaces the assistant message when the transport fails.
	ConnectionError string
	// Typing is shown in place of an empty assistant message while it is loading.
	Typing      string
	Welcome     string
	WelcomeHint string
	InputHint   string
}

const (
	keyProcessingError = "notice.processing_error"
	keyConnectionError = "notice.connection_error"
	keyTyping          = "notice.typing"
	keyWelcome         = "notice.welcome"
	keyWelcomeHint     = "notice.welcome_hint"
	keyInputHint       = "notice.input_hint"
)

var supportedLocales = []language.Tag{language.Indonesian, language.English}

var localeMatcher = language.NewMatcher(supportedLocales)

func init() {
	catalog := map[language.Tag]map[string]string{
		language.Indonesian: {
			keyProcessingError: "Maaf, terjadi kesalahan dalam memproses permintaan Anda.",
			keyConnectionError: "Maaf, terjadi kesalahan koneksi.",
			keyTyping:          "Mengetik...",
			keyWelcome:         "Selamat datang!",
			keyWelcomeHint:     "Silakan tanya tentang layanan publik",
			keyInputHint:       "Tulis pesan Anda...",
		},
		language.English: {
			keyProcessingError: "Sorry, something went wrong while processing your request.",
			keyConnectionError: "Sorry, a connection error occurred.",
			keyTyping:          "Typing...",
			keyWelcome:         "Welcome!",
			keyWelcomeHint:     "Ask anything about public services",
			keyInputHint:       "Type your message...",
		},
	}
	for tag, entries := range catalog {
		for key, msg := range entries {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// MatchLocale picks the supported locale closest to the given BCP 47 preferences, such as
// a configured locale or an Accept-Language header. Indonesian wins when nothing matches.
func MatchLocale(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return supportedLocales[0]
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return supportedLocales[0]
	}
	return supportedLocales[idx]
}

// NoticesFor returns the notices of the supported locale closest to tag.
func NoticesFor(tag language.Tag) Notices {
	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		idx = 0
	}
	p := message.NewPrinter(supportedLocales[idx])
	return Notices{
		ProcessingError: p.Sprintf(keyProcessingError),
		ConnectionError: p.Sprintf(keyConnectionError),
		Typing:          p.Sprintf(keyTyping),
		Welcome:         p.Sprintf(keyWelcome),
		WelcomeHint:     p.Sprintf(keyWelcomeHint),
		InputHint:       p.Sprintf(keyInputHint),
	}
}

// DefaultNotices are the Indonesian notices.
func DefaultNotices() Notices {
	return NoticesFor(language.Indonesian)
}
