package record

import "fmt"

// Validate checks the invariants a memory must satisfy before it is handed
// to storage. Storage drivers don't re-validate.
func (m *Memory) Validate() error {
	hasLink := m.ExternalURL != nil && *m.ExternalURL != ""
	if m.Content == "" && len(m.MediaRefs) == 0 && !hasLink {
		return fmt.Errorf("%w: content, media or an external link is required", ErrInvalid)
	}

	if m.YearNumber <= 0 {
		return fmt.Errorf("%w: year_number must be positive, got %d", ErrInvalid, m.YearNumber)
	}

	if !m.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, m.Type)
	}

	if m.Type == TypeText && len(m.MediaRefs) > 0 {
		return fmt.Errorf("%w: text memory carries %d media refs", ErrInvalid, len(m.MediaRefs))
	}

	if m.CreatedAt != "" {
		if _, err := ParseTime(m.CreatedAt); err != nil {
			return fmt.Errorf("%w: created_at: %v", ErrInvalid, err)
		}
	}

	return nil
}

// Validate checks that a letter has a body and a recipient.
func (l *Letter) Validate() error {
	if l.Message == "" {
		return fmt.Errorf("%w: letter message is required", ErrInvalid)
	}

	if l.Recipient == "" {
		return fmt.Errorf("%w: letter recipient is required", ErrInvalid)
	}

	if l.ScheduledFor != nil {
		if _, err := ParseTime(*l.ScheduledFor); err != nil {
			return fmt.Errorf("%w: scheduled_for: %v", ErrInvalid, err)
		}
	}

	return nil
}
