package stream_test

import (
	"testing"

	"github.com/MegaGrindStone/mpp-web-ui/internal/models"
	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
	"github.com/stretchr/testify/assert"
)

func chunk(text string) stream.Event {
	return stream.Event{Kind: stream.EventChunk, Text: text}
}

var (
	done    = stream.Event{Kind: stream.EventDone}
	failure = stream.Event{Kind: stream.EventError, Text: "upstream exploded"}
)

func reduce(s stream.State, events ...stream.Event) stream.State {
	notices := stream.DefaultNotices()
	for _, ev := range events {
		s = stream.Apply(s, ev, notices)
	}
	return s
}

func TestBegin(t *testing.T) {
	assert := assert.New(t)

	s := stream.Begin(stream.State{Open: true}, "jam buka?")
	assert.Equal(models.Transcript{
		{Role: models.RoleUser, Content: "jam buka?"},
		{Role: models.RoleAssistant, Content: ""},
	}, s.Transcript)
	assert.True(s.Loading)
	assert.True(s.Open)
	assert.Equal(stream.PhaseSending, s.Phase)

	s = stream.Receive(s)
	assert.Equal(stream.PhaseStreaming, s.Phase)
}

func TestApplyAppendsInArrivalOrder(t *testing.T) {
	s := reduce(stream.Begin(stream.State{}, "hi"), chunk("Hel"), chunk("lo "), chunk("world"), done)

	last, _ := s.Transcript.Last()
	assert.Equal(t, "Hello world", last.Content)
	assert.False(t, s.Loading)
	assert.Equal(t, stream.PhaseIdle, s.Phase)
}

func TestApplyDoesNotDeduplicate(t *testing.T) {
	s := reduce(stream.Begin(stream.State{}, "hi"), chunk("ha"), chunk("ha"), chunk("ha"))

	last, _ := s.Transcript.Last()
	assert.Equal(t, "hahaha", last.Content)
	assert.True(t, s.Loading)
}

func TestErrorReplacesPartialAnswer(t *testing.T) {
	s := reduce(stream.Begin(stream.State{}, "hi"), chunk("partial answer"), failure)

	last, _ := s.Transcript.Last()
	assert.Equal(t, stream.DefaultNotices().ProcessingError, last.Content)
	assert.False(t, s.Loading)
}

func TestTerminalTransitionsAreFinal(t *testing.T) {
	for _, terminal := range []stream.Event{done, failure} {
		t.Run(terminal.Kind.String(), func(t *testing.T) {
			ended := reduce(stream.Begin(stream.State{}, "hi"), chunk("foo"), terminal)
			after := reduce(ended, chunk("bar"), failure, done, chunk("baz"))
			assert.Equal(t, ended, after)

			after = stream.Fail(ended, "late failure")
			assert.Equal(t, ended, after)
			assert.Equal(t, ended, stream.Receive(ended))
		})
	}
}

func TestIgnorableLeavesStateUntouched(t *testing.T) {
	s := stream.Begin(stream.State{}, "hi")
	assert.Equal(t, s, reduce(s, stream.Event{Kind: stream.EventIgnorable}))
}

func TestTransitionsDoNotMutateInput(t *testing.T) {
	before := reduce(stream.Begin(stream.State{}, "hi"), chunk("foo"))
	snapshot := before.Transcript.Clone()

	_ = reduce(before, chunk("bar"))
	_ = stream.Fail(before, "notice")
	_ = stream.Begin(before, "again")

	assert.Equal(t, snapshot, before.Transcript)
}

func TestFinishKeepsPartialAnswer(t *testing.T) {
	s := stream.Finish(reduce(stream.Begin(stream.State{}, "hi"), chunk("Senin")))

	last, _ := s.Transcript.Last()
	assert.Equal(t, "Senin", last.Content)
	assert.False(t, s.Loading)
}

func TestSetOpen(t *testing.T) {
	s := stream.SetOpen(stream.State{}, true)
	assert.True(t, s.Open)
	assert.False(t, stream.SetOpen(s, false).Open)
}
