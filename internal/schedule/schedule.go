package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rotapost/internal/clock"
	"rotapost/internal/logging"
)

// Mode distinguishes hour-wide windows from exact-minute windows.
type Mode string

const (
	ModeHour   Mode = "hour"
	ModeMinute Mode = "minute"
)

// Window is a derived time range during which a bot is allowed to post.
type Window struct {
	Raw         string
	Hour        int
	StartMinute int
	EndMinute   int
	Label       string
	Mode        Mode
}

// Reason explains why a schedule evaluation declined to post.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNoSchedule    Reason = "no_schedule"
	ReasonOutsideWindow Reason = "outside_window"
)

// Evaluation is the outcome of matching the current time against a schedule.
type Evaluation struct {
	ShouldPost bool
	Reason     Reason
	Matched    *Window
	Next       *Window
	Windows    []Window
	Now        clock.Parts
}

var tokenPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?$`)

func label(hour, start, end int) string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", hour, start, hour, end)
}

// parseToken turns one schedule token into a window, or nil if the token is
// malformed or out of range. Bad tokens are only worth a warning; the rest of
// the schedule stays usable.
func parseToken(token string) *Window {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil
	}
	m := tokenPattern.FindStringSubmatch(trimmed)
	if m == nil {
		logging.Warn("schedule_token_invalid", map[string]any{"token": trimmed})
		return nil
	}
	hour, _ := strconv.Atoi(m[1])
	if hour < 0 || hour > 23 {
		logging.Warn("schedule_token_hour_out_of_range", map[string]any{"token": trimmed})
		return nil
	}
	if m[2] == "" {
		return &Window{Raw: trimmed, Hour: hour, StartMinute: 0, EndMinute: 59, Label: label(hour, 0, 59), Mode: ModeHour}
	}
	minute, _ := strconv.Atoi(m[2])
	if minute < 0 || minute > 59 {
		logging.Warn("schedule_token_minute_out_of_range", map[string]any{"token": trimmed})
		return nil
	}
	if minute == 0 {
		// HH:00 widens to the whole hour so invoker drift cannot miss it.
		return &Window{Raw: trimmed, Hour: hour, StartMinute: 0, EndMinute: 59, Label: label(hour, 0, 59), Mode: ModeHour}
	}
	return &Window{Raw: trimmed, Hour: hour, StartMinute: minute, EndMinute: minute, Label: label(hour, minute, minute), Mode: ModeMinute}
}

// ParseWindows parses a comma-separated schedule string. Invalid tokens are
// dropped; an empty input yields an empty set.
func ParseWindows(input string) []Window {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	var out []Window
	for _, token := range strings.Split(input, ",") {
		if w := parseToken(token); w != nil {
			out = append(out, *w)
		}
	}
	return out
}

// Evaluate decides whether now falls inside any window of the schedule.
// It is a pure function of its inputs.
func Evaluate(scheduledTimes string, now clock.Parts) Evaluation {
	windows := ParseWindows(scheduledTimes)
	if len(windows) == 0 {
		return Evaluation{Reason: ReasonNoSchedule, Windows: windows, Now: now}
	}

	for i := range windows {
		w := windows[i]
		if now.Hour == w.Hour && now.Minute >= w.StartMinute && now.Minute <= w.EndMinute {
			return Evaluation{ShouldPost: true, Matched: &windows[i], Windows: windows, Now: now}
		}
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Hour != sorted[j].Hour {
			return sorted[i].Hour < sorted[j].Hour
		}
		return sorted[i].StartMinute < sorted[j].StartMinute
	})

	nowMinutes := now.Hour*60 + now.Minute
	next := &sorted[0] // wrap to the earliest window tomorrow
	for i := range sorted {
		if sorted[i].Hour*60+sorted[i].StartMinute > nowMinutes {
			next = &sorted[i]
			break
		}
	}
	return Evaluation{Reason: ReasonOutsideWindow, Next: next, Windows: windows, Now: now}
}

// SummarizeWindows renders window labels for log lines.
func SummarizeWindows(windows []Window) string {
	if len(windows) == 0 {
		return "none"
	}
	labels := make([]string, len(windows))
	for i, w := range windows {
		labels[i] = w.Label
	}
	return strings.Join(labels, ", ")
}
