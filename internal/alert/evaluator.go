package alert

import "fxwatch/internal/domain"

// Evaluate returns the display status of an alert at the given rate.
// Inactive alerts are always waiting. Comparisons are inclusive so an exact
// touch of the target counts as triggered.
func Evaluate(alert *domain.Alert, currentRate float64) domain.AlertStatus {
	if alert == nil || !alert.IsActive || currentRate <= 0 {
		return domain.StatusWaiting
	}

	switch alert.Type {
	case domain.AlertAbsolute:
		if currentRate >= alert.TargetRate {
			return domain.StatusTriggered
		}
	case domain.AlertPercentage:
		// The base rate is fixed at creation; the target never drifts with
		// the market.
		target := alert.BaseRate * (1 + alert.Percentage/100)
		if currentRate >= target {
			return domain.StatusTriggered
		}
	case domain.AlertThreshold:
		switch alert.Direction {
		case domain.DirectionAbove:
			if currentRate >= alert.ThresholdRate {
				return domain.StatusTriggered
			}
		case domain.DirectionBelow:
			if currentRate <= alert.ThresholdRate {
				return domain.StatusTriggered
			}
		}
	}
	return domain.StatusWaiting
}
