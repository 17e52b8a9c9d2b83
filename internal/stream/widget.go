package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/mpp-web-ui/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transport opens the answer stream for a question. The returned body is read until it
// ends or ctx is cancelled.
type Transport interface {
	Ask(ctx context.Context, question string) (Response, error)
}

// Response is an opened answer stream.
type Response struct {
	Body io.ReadCloser
	// RequestID is the producer's correlation id, if it sent one. Diagnostics only.
	RequestID string
}

// Recorder receives one record per finished session.
type Recorder interface {
	Record(ctx context.Context, rec models.StreamRecord) error
}

// EndPolicy decides what a body ending without done or error means.
type EndPolicy int

const (
	// EndAccept keeps the partial answer and ends the turn normally.
	EndAccept EndPolicy = iota
	// EndFail treats the early end as a transport failure.
	EndFail
)

// BusyPolicy decides what Send does while an answer is still streaming.
type BusyPolicy int

const (
	// BusyReject refuses the new question with ErrBusy.
	BusyReject BusyPolicy = iota
	// BusySupersede cancels the running answer and starts the new one.
	BusySupersede
)

// DefaultInactivityTimeout bounds the silence between two reads of an answer stream.
const DefaultInactivityTimeout = 60 * time.Second

const errLoggerKey = "err"

const recordTimeout = 5 * time.Second

// Widget owns one chat conversation: its State, at most one in-flight session and the
// render subscribers. All methods are safe for concurrent use. Subscribers are called with
// the widget locked, in mutation order, and must not call back into the Widget.
type Widget struct {
	id         string
	transport  Transport
	recorder   Recorder
	notices    Notices
	inactivity time.Duration
	endPolicy  EndPolicy
	busyPolicy BusyPolicy
	logger     *slog.Logger
	tracer     trace.Tracer

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelCauseFunc
	subs    map[int]func(State)
	nextSub int

	wg sync.WaitGroup
}

// WidgetOption configures a Widget.
type WidgetOption func(*Widget)

// WithID names the widget in logs, spans and records.
func WithID(id string) WidgetOption {
	return func(w *Widget) { w.id = id }
}

// WithNotices sets the user-facing strings.
func WithNotices(n Notices) WidgetOption {
	return func(w *Widget) { w.notices = n }
}

// WithInactivityTimeout bounds the silence between reads. Zero disables the watchdog.
func WithInactivityTimeout(d time.Duration) WidgetOption {
	return func(w *Widget) { w.inactivity = d }
}

// WithEndPolicy sets how an early end of stream is treated.
func WithEndPolicy(p EndPolicy) WidgetOption {
	return func(w *Widget) { w.endPolicy = p }
}

// WithBusyPolicy sets how a send during streaming is treated.
func WithBusyPolicy(p BusyPolicy) WidgetOption {
	return func(w *Widget) { w.busyPolicy = p }
}

// WithRecorder stores a record of every finished session.
func WithRecorder(r Recorder) WidgetOption {
	return func(w *Widget) { w.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WidgetOption {
	return func(w *Widget) { w.logger = l }
}

// NewWidget creates an idle, closed widget asking questions through t.
func NewWidget(t Transport, opts ...WidgetOption) *Widget {
	w := &Widget{
		transport:  t,
		notices:    DefaultNotices(),
		inactivity: DefaultInactivityTimeout,
		logger:     slog.Default(),
		tracer:     otel.Tracer("github.com/MegaGrindStone/mpp-web-ui/internal/stream"),
		subs:       make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(slog.String("module", "stream"), slog.String("widget", w.id))
	return w
}

// ID returns the widget id.
func (w *Widget) ID() string {
	return w.id
}

// Notices returns the user-facing strings the widget was configured with.
func (w *Widget) Notices() Notices {
	return w.notices
}

// State returns a snapshot of the current state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Subscribe registers fn to receive every new state. The returned func unregisters it.
func (w *Widget) Subscribe(fn func(State)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Open shows the widget.
func (w *Widget) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = SetOpen(w.state, true)
	w.notifyLocked()
}

// Close hides the widget and cancels the answer being streamed, keeping what arrived.
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = SetOpen(w.state, false)
	if w.state.Loading {
		w.cancel(ErrClosed)
		w.state = Abort(w.state)
	}
	w.notifyLocked()
}

// Wait blocks until no session is running.
func (w *Widget) Wait() {
	w.wg.Wait()
}

// Send asks question and blocks until its answer reaches a terminal state. The returned
// error is for the caller's logs; the transcript already shows the outcome.
func (w *Widget) Send(ctx context.Context, question string) error {
	done, err := w.Start(ctx, question)
	if err != nil {
		return err
	}
	return <-done
}

// Start appends question and its placeholder, then streams the answer in the background.
// The channel receives the session's terminal error (nil on success) and is then closed.
func (w *Widget) Start(ctx context.Context, question string) (<-chan error, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	w.mu.Lock()
	if w.state.Loading {
		if w.busyPolicy == BusyReject {
			w.mu.Unlock()
			return nil, ErrBusy
		}
		w.cancel(ErrSuperseded)
		w.state = Abort(w.state)
	}

	w.gen++
	s := &session{gen: w.gen, question: question, startedAt: time.Now()}
	sessCtx, cancel := context.WithCancelCause(ctx)
	w.cancel = cancel
	w.state = Begin(w.state, question)
	w.notifyLocked()
	w.wg.Add(1)
	w.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer w.wg.Done()
		defer close(done)
		err := w.run(sessCtx, s)
		cancel(nil)
		done <- err
	}()
	return done, nil
}

type session struct {
	gen       uint64
	question  string
	requestID string
	answer    strings.Builder
	startedAt time.Time
}

func (w *Widget) run(ctx context.Context, s *session) error {
	ctx, span := w.tracer.Start(ctx, "stream.session", trace.WithAttributes(
		attribute.String("widget.id", w.id),
		attribute.Int("question.length", len(s.question)),
	))
	defer span.End()

	outcome, err := w.stream(ctx, s)

	span.SetAttributes(
		attribute.String("stream.outcome", string(outcome)),
		attribute.String("stream.request_id", s.requestID),
		attribute.Int("answer.length", s.answer.Len()),
	)
	if err != nil && outcome != models.OutcomeAborted {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	w.record(ctx, s, outcome, err)
	return err
}

func (w *Widget) stream(ctx context.Context, s *session) (models.Outcome, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// The watchdog also covers a producer that accepts the request but never answers it.
	var timer *time.Timer
	if w.inactivity > 0 {
		timer = time.AfterFunc(w.inactivity, func() { cancel(ErrInactive) })
		defer timer.Stop()
	}

	resp, err := w.transport.Ask(ctx, s.question)
	if err != nil {
		return w.fail(ctx, s, err)
	}
	if resp.Body == nil {
		return w.fail(ctx, s, errors.New("response has no body"))
	}
	defer resp.Body.Close()
	stop := context.AfterFunc(ctx, func() { _ = resp.Body.Close() })
	defer stop()

	s.requestID = resp.RequestID
	w.logger.Debug("Answer stream opened", slog.String("requestID", s.requestID))

	body := &watchedBody{r: resp.Body, onFirst: func() { w.receive(s) }}
	if timer != nil {
		body.timeout = w.inactivity
		body.timer = timer
		timer.Reset(w.inactivity)
	}

	for payload, err := range Frames(body) {
		if err != nil {
			return w.fail(ctx, s, err)
		}
		ev := w.classify(payload)
		if !w.apply(s, ev) {
			return w.aborted(ctx)
		}
		if ev.Terminal() {
			return w.terminal(s, ev)
		}
	}

	if context.Cause(ctx) != nil {
		return w.fail(ctx, s, io.ErrUnexpectedEOF)
	}
	if w.endPolicy == EndFail {
		err := transportError(ErrPrematureEnd)
		w.settle(s, w.notices.ConnectionError)
		w.logger.Error("Answer stream ended early",
			slog.String("requestID", s.requestID),
			slog.String(errLoggerKey, err.Error()))
		return models.OutcomeTransport, err
	}
	w.settle(s, "")
	w.logger.Warn("Answer stream ended without a terminal event, keeping partial answer",
		slog.String("requestID", s.requestID),
		slog.Int("answerLength", s.answer.Len()))
	return models.OutcomePartial, nil
}

// classify decodes payload and logs when the legacy grammar had to be used.
func (w *Widget) classify(payload string) Event {
	ev, err := DecodeStructured(payload)
	if err == nil {
		return ev
	}
	w.logger.Debug("Falling back to legacy payload", slog.String(errLoggerKey, err.Error()))
	return ClassifyLegacy(payload)
}

// terminal reports the outcome of a session stopped by a done or error event.
func (w *Widget) terminal(s *session, ev Event) (models.Outcome, error) {
	switch ev.Kind {
	case EventDone:
		w.logger.Info("Final stream",
			slog.String("requestID", s.requestID),
			slog.String("answer", s.answer.String()))
		return models.OutcomeDone, nil
	case EventError:
		err := &ProducerError{Message: ev.Text}
		w.logger.Error("Answer stream reported an error",
			slog.String("requestID", s.requestID),
			slog.String(errLoggerKey, err.Error()))
		return models.OutcomeProducer, err
	default:
		return models.OutcomeAborted, nil
	}
}

// aborted reports a session whose turn was already ended by Close or a newer send.
func (w *Widget) aborted(ctx context.Context) (models.Outcome, error) {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = ErrSuperseded
	}
	w.logger.Debug("Dropping events of an ended turn", slog.String(errLoggerKey, cause.Error()))
	return models.OutcomeAborted, cause
}

// fail ends a session after err. Cancellation by the widget or the caller aborts quietly,
// anything else including inactivity is a transport failure shown to the visitor.
func (w *Widget) fail(ctx context.Context, s *session, err error) (models.Outcome, error) {
	cause := context.Cause(ctx)
	if cause != nil && !errors.Is(cause, ErrInactive) {
		w.settle(s, "")
		w.logger.Debug("Answer stream cancelled", slog.String(errLoggerKey, cause.Error()))
		return models.OutcomeAborted, cause
	}
	if cause != nil {
		err = cause
	}

	terr := transportError(err)
	w.settle(s, w.notices.ConnectionError)
	w.logger.Error("Answer stream failed",
		slog.String("requestID", s.requestID),
		slog.String(errLoggerKey, terr.Error()))
	return models.OutcomeTransport, terr
}

func (w *Widget) current(s *session) bool {
	return s.gen == w.gen && w.state.Loading
}

func (w *Widget) receive(s *session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.current(s) {
		return
	}
	w.state = Receive(w.state)
	w.notifyLocked()
}

// apply reduces ev into the state. It reports false when the turn of s is already over.
func (w *Widget) apply(s *session, ev Event) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.current(s) {
		return false
	}
	if ev.Kind == EventIgnorable {
		return true
	}
	if ev.Kind == EventChunk {
		s.answer.WriteString(ev.Text)
	}
	w.state = Apply(w.state, ev, w.notices)
	w.notifyLocked()
	return true
}

// settle ends the turn of s, replacing the answer with notice when it is not empty.
func (w *Widget) settle(s *session, notice string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.current(s) {
		return
	}
	if notice != "" {
		w.state = Fail(w.state, notice)
	} else {
		w.state = Finish(w.state)
	}
	w.notifyLocked()
}

func (w *Widget) notifyLocked() {
	if len(w.subs) == 0 {
		return
	}
	snapshot := w.state.clone()
	for _, fn := range w.subs {
		fn(snapshot)
	}
}

func (w *Widget) record(ctx context.Context, s *session, outcome models.Outcome, err error) {
	if w.recorder == nil {
		return
	}
	rec := models.StreamRecord{
		WidgetID:  w.id,
		RequestID: s.requestID,
		Question:  s.question,
		Answer:    s.answer.String(),
		Outcome:   outcome,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
	if err != nil {
		rec.Detail = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := w.recorder.Record(ctx, rec); err != nil {
		w.logger.Error("Failed to record stream session",
			slog.String("requestID", s.requestID),
			slog.String(errLoggerKey, fmt.Errorf("record: %w", err).Error()))
	}
}

// watchedBody resets the inactivity timer on every read that returns data and reports
// the first such read.
type watchedBody struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
	onFirst func()
	seen    bool
}

func (b *watchedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if n > 0 {
		if b.timer != nil {
			b.timer.Reset(b.timeout)
		}
		if !b.seen {
			b.seen = true
			b.onFirst()
		}
	}
	return n, err
}
