package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestion is returned by Send for a blank question. Nothing is appended.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrBusy is returned by Send while another answer is streaming under BusyReject.
	ErrBusy = errors.New("an answer is still streaming")
	// ErrTransport wraps connection failures, unreadable bodies and inactivity.
	ErrTransport = errors.New("transport failure")
	// ErrPrematureEnd reports a body that ended without done or error.
	ErrPrematureEnd = errors.New("stream ended without a terminal event")
	// ErrInactive is the cause of a session cancelled by the inactivity watchdog.
	ErrInactive = errors.New("stream inactive")
	// ErrClosed is the cause of a session cancelled by closing the widget.
	ErrClosed = errors.New("widget closed")
	// ErrSuperseded is the cause of a session cancelled by a newer send.
	ErrSuperseded = errors.New("superseded by a newer question")
)

// ProducerError is an error event sent by the answering service. Message is only logged;
// the visitor sees the localized processing notice.
type ProducerError struct {
	Message string
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producer error: %s", e.Message)
}

func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
