package monitor

import "oeffimonitor.org/internal/models"

const (
	hurryMarginSeconds = 2 * 60
	soonMarginSeconds  = 5 * 60
)

// ClassifyWalk rates a departure leaving in secondsLeft for a walk of
// walkSeconds.
func ClassifyWalk(walkSeconds, secondsLeft float64) models.WalkStatus {
	switch {
	case walkSeconds > secondsLeft:
		return models.WalkStatusLate
	case walkSeconds+hurryMarginSeconds > secondsLeft:
		return models.WalkStatusHurry
	case walkSeconds+soonMarginSeconds > secondsLeft:
		return models.WalkStatusSoon
	default:
		return models.WalkStatusNone
	}
}

// Suppressed reports whether any rule filters out line at stop.
func Suppressed(rules []models.FilterRule, stop, line string) bool {
	for _, rule := range rules {
		if rule.Matches(stop, line) {
			return true
		}
	}
	return false
}
