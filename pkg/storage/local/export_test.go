package local

import "time"

// SetNow replaces the driver's clock.
func (d *Driver) SetNow(now func() time.Time) {
	d.now = now
}
