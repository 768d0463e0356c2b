package sse

import (
	"bufio"
	"io"
	"strings"
)

// Reader parses SSE events from a source io.Reader. When built with
// NewTeeReader every raw line is also written verbatim to a destination,
// which lets `yearbook watch --raw` echo the stream while still decoding it.
type Reader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	// current accumulates fields for the event being built in the current scan.
	current *Event
	hasData bool
}

// NewReader returns a Reader that parses SSE events from src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, io.Discard)
}

// NewTeeReader returns a Reader that parses SSE events from src and writes
// all raw bytes through to dest.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{
		scanner: scanner,
		dest:    dest,
		current: &Event{},
	}
}

// Next blocks until a complete event is available (terminated by a blank
// line) and returns it. Next returns nil, nil when the source is exhausted.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		raw := r.scanner.Text()

		// bufio.Scanner strips the newline, reinsert it for dest.
		if _, err := io.WriteString(r.dest, raw+"\n"); err != nil {
			return nil, err
		}

		if raw == "" {
			if r.hasData {
				ev := r.current
				r.reset()
				return ev, nil
			}
			// keep-alive or leading blank line
			continue
		}

		// comments, including the API's keep-alive pings
		if strings.HasPrefix(raw, ":") {
			continue
		}

		r.parseLine(raw)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// Stream ended without a trailing blank line.
	if r.hasData {
		ev := r.current
		r.reset()
		return ev, nil
	}

	return nil, nil
}

// parseLine accumulates a single "field:value" line into the current event.
// The first space after the colon is optional and stripped if present.
func (r *Reader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	default:
		// "retry" and unknown fields are ignored.
	}
}

func (r *Reader) reset() {
	r.current = &Event{}
	r.hasData = false
}
