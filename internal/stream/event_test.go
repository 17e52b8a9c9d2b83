package stream_test

import (
	"testing"

	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    stream.Event
	}{
		{name: "structured chunk", payload: `{"type":"chunk","content":"foo"}`, want: stream.Event{Kind: stream.EventChunk, Text: "foo"}},
		{name: "structured chunk without content", payload: `{"type":"chunk"}`, want: stream.Event{Kind: stream.EventChunk}},
		{name: "structured done", payload: `{"type":"done"}`, want: stream.Event{Kind: stream.EventDone}},
		{name: "structured error content", payload: `{"type":"error","content":"model down"}`, want: stream.Event{Kind: stream.EventError, Text: "model down"}},
		{name: "structured error message", payload: `{"type":"error","message":"quota"}`, want: stream.Event{Kind: stream.EventError, Text: "quota"}},
		{name: "unknown discriminant", payload: `{"type":"usage","tokens":12}`, want: stream.Event{Kind: stream.EventIgnorable}},
		{name: "missing discriminant", payload: `{"content":"x"}`, want: stream.Event{Kind: stream.EventIgnorable}},
		{name: "legacy done", payload: "[DONE]", want: stream.Event{Kind: stream.EventDone}},
		{name: "legacy error", payload: "[ERROR] upstream timeout", want: stream.Event{Kind: stream.EventError, Text: "upstream timeout"}},
		{name: "legacy bare error", payload: "[ERROR]", want: stream.Event{Kind: stream.EventError}},
		{name: "legacy text", payload: "Senin", want: stream.Event{Kind: stream.EventChunk, Text: "Senin"}},
		{name: "legacy text keeps spaces", payload: " 08:00 ", want: stream.Event{Kind: stream.EventChunk, Text: " 08:00 "}},
		{name: "malformed json falls back", payload: `{"type":"chunk",`, want: stream.Event{Kind: stream.EventChunk, Text: `{"type":"chunk",`}},
		{name: "json scalar is text", payload: "42", want: stream.Event{Kind: stream.EventChunk, Text: "42"}},
		{name: "json null is text", payload: "null", want: stream.Event{Kind: stream.EventChunk, Text: "null"}},
		{name: "done sentinel is exact", payload: "[DONE] ", want: stream.Event{Kind: stream.EventChunk, Text: "[DONE] "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stream.Classify(tt.payload))
		})
	}
}

func TestDecodeStructuredError(t *testing.T) {
	_, err := stream.DecodeStructured("plain text")
	var de *stream.DecodeError
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, "plain text", de.Payload)
}

func TestEncodingsRoundTripThroughClassify(t *testing.T) {
	events := []stream.Event{
		{Kind: stream.EventChunk, Text: "Senin-Jumat"},
		{Kind: stream.EventDone},
		{Kind: stream.EventError, Text: "boom"},
	}
	for _, ev := range events {
		assert.Equal(t, ev, stream.Classify(stream.EncodeStructured(ev)), ev.Kind.String())
		assert.Equal(t, ev, stream.Classify(stream.EncodeLegacy(ev)), ev.Kind.String())
	}
	assert.Empty(t, stream.EncodeStructured(stream.Event{Kind: stream.EventIgnorable}))
}
