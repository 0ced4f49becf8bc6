// Package memebot implements command recognition and dispatch for the memebot
// GroupMe integration: fuzzy command matching, the command vocabulary, the
// time-window catalog and the best-post finder.
package memebot

import "time"

// Window is a named duration bounding a message-history scan.
type Window struct {
	Name     string
	Duration time.Duration
}

// windows is ordered by increasing duration. A month is 1/12 of a 365-day year.
var windows = []Window{
	{Name: "day", Duration: 86400 * time.Second},
	{Name: "week", Duration: 604800 * time.Second},
	{Name: "month", Duration: 2628000 * time.Second},
	{Name: "year", Duration: 31540000 * time.Second},
}

// Windows returns a copy of the time-window catalog ordered by duration.
func Windows() []Window {
	out := make([]Window, len(windows))
	copy(out, windows)
	return out
}

// WindowNames returns the catalog keys in catalog order.
func WindowNames() []string {
	names := make([]string, 0, len(windows))
	for _, w := range windows {
		names = append(names, w.Name)
	}
	return names
}

// LookupWindow returns the duration registered for name.
func LookupWindow(name string) (time.Duration, bool) {
	for _, w := range windows {
		if w.Name == name {
			return w.Duration, true
		}
	}
	return 0, false
}
