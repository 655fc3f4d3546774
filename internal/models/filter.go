package models

import "slices"

// FilterRule suppresses departures. A rule with stops set matches only when
// both the stop and the line are listed; a rule without stops matches on the
// line alone.
type FilterRule struct {
	Stop []string
	Line []string
}

// Matches reports whether the rule suppresses a departure of line at stop.
func (r FilterRule) Matches(stop, line string) bool {
	if !slices.Contains(r.Line, line) {
		return false
	}
	if len(r.Stop) == 0 {
		return true
	}
	return slices.Contains(r.Stop, stop)
}
