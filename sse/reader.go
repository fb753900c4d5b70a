// Package sse parses Server-Sent-Events framing from a byte stream.
//
// The reader is lazy, single-pass and non-restartable: it pulls lines from
// the underlying stream as frames are requested and terminates with io.EOF
// when the stream is exhausted. It does not interpret sentinel payloads like
// "data: [DONE]"; that is the caller's signal to stop consuming.
package sse

import (
	"bufio"
	"bytes"
	"io"
)

// Frame is one decoded SSE event: an optional event name and the data payload.
type Frame struct {
	Event string
	Data  string
}

// Reader turns a byte stream into a sequence of frames. Partial lines are
// buffered across reads, so chunk boundaries in the underlying stream (even
// mid-line) never produce truncated frames.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for frame-by-frame reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next frame, or io.EOF once the stream is exhausted.
//
// Lines of the form "event: <name>" set the pending event name and
// "data: <value>" contribute to the pending data (multiple data lines within
// one frame are joined with a newline, exactly one space after the colon is
// stripped). A blank line yields the pending frame when its data is
// non-empty. Lines with no recognized prefix (comments, keep-alives, id and
// retry fields) are silently ignored. Pending data still buffered when the
// stream closes is flushed as a final frame.
func (s *Reader) Next() (Frame, error) {
	var event string
	var data [][]byte

	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				line = bytes.TrimRight(line, "\r\n")
				if f, ok := parseField(line); ok {
					event, data = collectField(f, event, data)
				}
				if len(data) > 0 {
					return Frame{Event: event, Data: string(bytes.Join(data, []byte("\n")))}, nil
				}
				return Frame{}, io.EOF
			}
			return Frame{}, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line ends the event.
		if len(line) == 0 {
			if len(data) > 0 {
				return Frame{Event: event, Data: string(bytes.Join(data, []byte("\n")))}, nil
			}
			event = ""
			continue
		}

		if f, ok := parseField(line); ok {
			event, data = collectField(f, event, data)
		}
	}
}

type field struct {
	name  string
	value []byte
}

func parseField(line []byte) (field, bool) {
	switch {
	case bytes.HasPrefix(line, []byte("event:")):
		return field{"event", trimLeadingSpace(line[len("event:"):])}, true
	case bytes.HasPrefix(line, []byte("data:")):
		return field{"data", trimLeadingSpace(line[len("data:"):])}, true
	default:
		return field{}, false
	}
}

func collectField(f field, event string, data [][]byte) (string, [][]byte) {
	switch f.name {
	case "event":
		event = string(f.value)
	case "data":
		data = append(data, f.value)
	}
	return event, data
}

// trimLeadingSpace strips exactly one space after the field colon, per the
// SSE convention. Further whitespace is payload.
func trimLeadingSpace(b []byte) []byte {
	if len(b) > 0 && b[0] == ' ' {
		return b[1:]
	}
	return b
}
