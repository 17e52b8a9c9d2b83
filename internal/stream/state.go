package stream

import (
	"github.com/MegaGrindStone/mpp-web-ui/internal/models"
)

// Phase is the position of a widget in its send cycle.
type Phase int

const (
	// PhaseIdle means no answer is pending.
	PhaseIdle Phase = iota
	// PhaseSending means the question is out and no answer data has arrived yet.
	PhaseSending
	// PhaseStreaming means answer data is arriving.
	PhaseStreaming
)

func (p Phase) String() string {
	switch p {
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// State is everything the chat widget renders. Transition functions never modify their
// input; each returns the next State with its own transcript copy.
type State struct {
	Transcript models.Transcript
	Loading    bool
	Open       bool
	Phase      Phase
}

func (s State) clone() State {
	s.Transcript = s.Transcript.Clone()
	return s
}

// Begin appends the question and an empty assistant placeholder and enters PhaseSending.
func Begin(s State, question string) State {
	next := s.clone()
	next.Transcript = append(next.Transcript,
		models.ChatMessage{Role: models.RoleUser, Content: question},
		models.ChatMessage{Role: models.RoleAssistant},
	)
	next.Loading = true
	next.Phase = PhaseSending
	return next
}

// Receive marks the first response byte: PhaseSending becomes PhaseStreaming.
func Receive(s State) State {
	if !s.Loading || s.Phase != PhaseSending {
		return s
	}
	next := s.clone()
	next.Phase = PhaseStreaming
	return next
}

// Apply reduces one event into s. Events arriving when no turn is loading are dropped,
// which makes every terminal transition final.
func Apply(s State, ev Event, notices Notices) State {
	if !s.Loading {
		return s
	}
	switch ev.Kind {
	case EventChunk:
		if ev.Text == "" {
			return s
		}
		next := s.clone()
		if next.Phase == PhaseSending {
			next.Phase = PhaseStreaming
		}
		appendOpen(next.Transcript, ev.Text)
		return next
	case EventDone:
		return Finish(s)
	case EventError:
		return Fail(s, notices.ProcessingError)
	default:
		return s
	}
}

// Fail ends the turn and replaces the open assistant message with notice.
func Fail(s State, notice string) State {
	if !s.Loading {
		return s
	}
	next := s.clone()
	replaceOpen(next.Transcript, notice)
	next.Loading = false
	next.Phase = PhaseIdle
	return next
}

// Finish ends the turn keeping the assistant content accumulated so far.
func Finish(s State) State {
	if !s.Loading {
		return s
	}
	next := s.clone()
	next.Loading = false
	next.Phase = PhaseIdle
	return next
}

// Abort ends the turn after cancellation. Content is kept as accumulated.
func Abort(s State) State {
	return Finish(s)
}

// SetOpen returns s with the widget visibility set to open.
func SetOpen(s State, open bool) State {
	next := s.clone()
	next.Open = open
	return next
}

func openIndex(t models.Transcript) int {
	last := len(t) - 1
	if last < 0 || t[last].Role != models.RoleAssistant {
		return -1
	}
	return last
}

func appendOpen(t models.Transcript, text string) {
	if i := openIndex(t); i >= 0 {
		t[i].Content += text
	}
}

func replaceOpen(t models.Transcript, text string) {
	if i := openIndex(t); i >= 0 {
		t[i].Content = text
	}
}
