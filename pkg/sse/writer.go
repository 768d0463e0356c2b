package sse

import (
	"fmt"
	"io"
	"strings"
)

// flusher matches *bufio.Writer, which is what fiber hands to stream writers.
type flusher interface {
	Flush() error
}

// Writer frames events onto an io.Writer, flushing after each one when the
// destination buffers.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes one event. Multi-line data is split into several data
// fields so readers join it back with "\n".
func (w *Writer) WriteEvent(ev Event) error {
	var b strings.Builder

	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	return w.write(b.String())
}

// Comment writes a comment line. Readers skip it, which makes it a keep-alive.
func (w *Writer) Comment(text string) error {
	return w.write(": " + text + "\n\n")
}

func (w *Writer) write(s string) error {
	if _, err := io.WriteString(w.w, s); err != nil {
		return err
	}
	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
