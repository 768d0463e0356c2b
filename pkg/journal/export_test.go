package journal

import "time"

// SetNow replaces the service's clock.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}
