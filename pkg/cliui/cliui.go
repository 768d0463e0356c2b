// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, memory and letter rendering) for yearbook CLI commands.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/utils"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	IDStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	AuthorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	typeStyles = map[record.Type]lipgloss.Style{
		record.TypeText:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		record.TypePhoto: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		record.TypeVideo: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
// On failure the raw content is returned along with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// MemoryHeader renders the one-line summary shown above a memory's content:
// id, type badge, date, author and media count.
func MemoryHeader(m record.Memory) string {
	style, ok := typeStyles[m.Type]
	if !ok {
		style = StepStyle
	}

	parts := []string{
		IDStyle.Render(m.ID),
		style.Render("[" + string(m.Type) + "]"),
		StepStyle.Render(shortDate(m.CreatedAt)),
	}
	if m.Author != nil && *m.Author != "" {
		parts = append(parts, AuthorStyle.Render(*m.Author))
	}
	if n := len(m.MediaRefs); n > 0 {
		parts = append(parts, StepStyle.Render(fmt.Sprintf("%d media", n)))
	}

	return strings.Join(parts, " ")
}

// SummaryWidth is how many runes of content MemorySummary keeps.
const SummaryWidth = 60

// MemorySummary renders MemoryHeader followed by the first line of the
// content, cut to SummaryWidth runes.
func MemorySummary(m record.Memory) string {
	header := MemoryHeader(m)
	first, _, _ := strings.Cut(m.Content, "\n")
	if first == "" {
		return header
	}
	return header + " " + DimStyle.Render(utils.Truncate(first, SummaryWidth))
}

// LetterHeader renders the summary line for a letter.
func LetterHeader(l record.Letter) string {
	state := "pending"
	if l.IsDelivered {
		state = "delivered"
	}

	from := ""
	if l.Sender != nil && *l.Sender != "" {
		from = " from " + AuthorStyle.Render(*l.Sender)
	}

	return fmt.Sprintf("%s to %s%s %s",
		IDStyle.Render(l.ID),
		AuthorStyle.Render(l.Recipient),
		from,
		StepStyle.Render("("+state+")"),
	)
}

// shortDate trims a stored timestamp to its date, leaving unparsable input as is.
func shortDate(ts string) string {
	t, err := record.ParseTime(ts)
	if err != nil {
		return ts
	}
	return t.UTC().Format("2006-01-02")
}
