package models

import (
	"time"

	"github.com/julianstephens/identityforge/internal/constants"
)

// Millis is a point in time expressed as milliseconds since the Unix epoch.
type Millis int64

// Now returns the current wall-clock time as Millis.
func Now() Millis {
	return FromTime(time.Now())
}

// FromTime converts t to Millis.
func FromTime(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Time converts m back to a time.Time in the local zone.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

// StartOfDay floors m to the most recent day boundary of the raw epoch
// value. The result is a UTC midnight regardless of display timezone.
func StartOfDay(m Millis) Millis {
	return m - Millis(int64(m)%constants.DayMillis)
}

// DaysAgo returns m shifted back by n whole days.
func DaysAgo(m Millis, n int) Millis {
	return m - Millis(int64(n)*constants.DayMillis)
}

// Ptr returns a pointer to m, for optional timestamp fields.
func (m Millis) Ptr() *Millis {
	return &m
}
