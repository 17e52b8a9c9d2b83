package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventKind discriminates classified stream events.
type EventKind int

const (
	// EventIgnorable is a well-formed event this consumer does not act on.
	EventIgnorable EventKind = iota
	// EventChunk carries text to append to the open assistant message.
	EventChunk
	// EventDone ends the stream successfully.
	EventDone
	// EventError ends the stream with a producer-side failure.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "ignorable"
	}
}

// Event is one classified frame payload. Text is the chunk content for EventChunk and the
// producer's message for EventError.
type Event struct {
	Kind EventKind
	Text string
}

// Terminal reports whether no further events are expected after e.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}

// Wire encoding of structured payloads.
const (
	TypeChunk = "chunk"
	TypeDone  = "done"
	TypeError = "error"

	legacyDone        = "[DONE]"
	legacyErrorPrefix = "[ERROR]"
)

// Envelope is the structured payload shape: {"type": "...", "content": "..."}.
type Envelope struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// DecodeError reports a payload that is not a structured envelope. It is recovered by the
// legacy grammar and never reaches the user.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode structured payload %q: %v", e.Payload, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Classify turns one payload into exactly one Event. The structured encoding is tried
// first; only when it does not decode is the payload read with the legacy sentinels.
func Classify(payload string) Event {
	ev, err := DecodeStructured(payload)
	if err != nil {
		return ClassifyLegacy(payload)
	}
	return ev
}

// DecodeStructured decodes a JSON envelope. Unknown discriminants are ignorable so newer
// producers can add event types without breaking this consumer.
func DecodeStructured(payload string) (Event, error) {
	// A bare JSON scalar such as null or a number is a legacy text token, not an envelope.
	if !strings.HasPrefix(strings.TrimSpace(payload), "{") {
		return Event{}, &DecodeError{Payload: payload, Err: fmt.Errorf("not a JSON object")}
	}

	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return Event{}, &DecodeError{Payload: payload, Err: err}
	}

	switch env.Type {
	case TypeChunk:
		return Event{Kind: EventChunk, Text: env.Content}, nil
	case TypeDone:
		return Event{Kind: EventDone}, nil
	case TypeError:
		msg := env.Content
		if msg == "" {
			msg = env.Message
		}
		return Event{Kind: EventError, Text: msg}, nil
	default:
		return Event{Kind: EventIgnorable}, nil
	}
}

// ClassifyLegacy reads a plain-text payload: [DONE] finishes, [ERROR]<message> fails and
// anything else is a chunk taken verbatim.
func ClassifyLegacy(payload string) Event {
	if payload == legacyDone {
		return Event{Kind: EventDone}
	}
	if msg, ok := strings.CutPrefix(payload, legacyErrorPrefix); ok {
		return Event{Kind: EventError, Text: strings.TrimSpace(msg)}
	}
	return Event{Kind: EventChunk, Text: payload}
}

// EncodeStructured renders e in the structured wire encoding. Ignorable events have no
// encoding and yield an empty string.
func EncodeStructured(e Event) string {
	var env Envelope
	switch e.Kind {
	case EventChunk:
		env = Envelope{Type: TypeChunk, Content: e.Text}
	case EventDone:
		env = Envelope{Type: TypeDone}
	case EventError:
		env = Envelope{Type: TypeError, Content: e.Text}
	default:
		return ""
	}
	b, _ := json.Marshal(env)
	return string(b)
}

// EncodeLegacy renders e in the plain-text wire encoding.
func EncodeLegacy(e Event) string {
	switch e.Kind {
	case EventChunk:
		return e.Text
	case EventDone:
		return legacyDone
	case EventError:
		return legacyErrorPrefix + " " + e.Text
	default:
		return ""
	}
}
