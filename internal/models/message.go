package models

// Role represents the role of a transcript participant.
type Role string

const (
	// RoleUser represents a question typed by the visitor.
	RoleUser Role = "user"
	// RoleAssistant represents an answer streamed from the answering service.
	RoleAssistant Role = "assistant"
)

// ChatMessage is one transcript entry. Content of an assistant message grows while its turn
// is streaming; a user message is never modified after it is appended.
type ChatMessage struct {
	Role    Role
	Content string
}

// Transcript is the ordered conversation shown in the chat widget. Order is insertion order.
type Transcript []ChatMessage

// Clone returns a copy that shares no backing array with t.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Last returns the last message and whether the transcript is non-empty.
func (t Transcript) Last() (ChatMessage, bool) {
	if len(t) == 0 {
		return ChatMessage{}, false
	}
	return t[len(t)-1], true
}
