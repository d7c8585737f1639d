package clock

import "time"

// All scheduling decisions are made in Japan Standard Time. A fixed offset
// avoids depending on the host tzdata, which the CI runners do not ship.
var JST = time.FixedZone("JST", 9*60*60)

// Parts is the wall clock broken into the fields the scheduler consumes.
type Parts struct {
	Hour   int
	Minute int
	Second int
	ISO    string
}

// PartsAt converts t into JST wall-clock parts.
func PartsAt(t time.Time) Parts {
	local := t.In(JST)
	return Parts{
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Second: local.Second(),
		ISO:    local.Format("2006-01-02T15:04:05+09:00"),
	}
}

// Now returns the current JST wall-clock parts.
func Now() Parts { return PartsAt(time.Now()) }

// FormatDateTime renders t as a human-readable JST timestamp for log lines.
func FormatDateTime(t time.Time) string {
	return t.In(JST).Format("2006/01/02 15:04:05")
}
