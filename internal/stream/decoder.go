// Package stream consumes the answering service's event stream and turns it into chat
// transcript updates. The pipeline is a line decoder, an event classifier and a pure
// transcript reducer, driven by Widget which owns one conversation.
package stream

import (
	"errors"
	"io"
	"iter"
	"strings"
)

// DataPrefix marks the lines that carry an event payload.
const DataPrefix = "data: "

const readBufferSize = 4096

// Decoder reassembles newline-terminated frames from arbitrarily split chunks. The zero
// value is ready to use.
type Decoder struct {
	carry string
}

// Feed appends chunk to the pending remainder and returns every frame completed by it. The
// text after the last newline is kept until a later chunk terminates it.
func (d *Decoder) Feed(chunk string) []string {
	lines := strings.Split(d.carry+chunk, "\n")
	d.carry = lines[len(lines)-1]
	frames := lines[:len(lines)-1]
	for i, f := range frames {
		frames[i] = strings.TrimSuffix(f, "\r")
	}
	return frames
}

// Pending returns the undelimited remainder held back from the last Feed.
func (d *Decoder) Pending() string {
	return d.carry
}

// Reset drops the pending remainder.
func (d *Decoder) Reset() {
	d.carry = ""
}

// Payload strips the data prefix from frame. Frames without it (blank separators, event or
// id fields, comments) are reported as not forwarded.
func Payload(frame string) (string, bool) {
	if !strings.HasPrefix(frame, DataPrefix) {
		return "", false
	}
	return frame[len(DataPrefix):], true
}

// Frames reads r on demand and yields the payload of every complete data frame in byte
// order. A read error is yielded once and ends the sequence; io.EOF ends it silently. The
// unterminated tail at EOF is not a frame and is dropped.
func Frames(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var dec Decoder
		buf := make([]byte, readBufferSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, frame := range dec.Feed(string(buf[:n])) {
					payload, ok := Payload(frame)
					if !ok {
						continue
					}
					if !yield(payload, nil) {
						return
					}
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}
		}
	}
}
