// Package sse reads and writes Server-Sent Events. The API streams live
// record changes with Writer; the CLI watch command consumes them with
// Reader, optionally teeing the raw stream to the terminal.
//
// Wire format per the WHATWG event-stream grammar:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
