package models

import "time"

// Outcome is the terminal state a stream session ended in.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeProducer  Outcome = "producer_error"
	OutcomeTransport Outcome = "transport_error"
	OutcomePartial   Outcome = "premature_end"
	OutcomeAborted   Outcome = "aborted"
)

// StreamRecord is the diagnostics entry kept for one finished stream session. It never holds
// the transcript, only what a single question/answer cycle produced.
type StreamRecord struct {
	ID        string
	WidgetID  string
	RequestID string
	Question  string
	Answer    string
	Outcome   Outcome
	Detail    string
	StartedAt time.Time
	EndedAt   time.Time
}
