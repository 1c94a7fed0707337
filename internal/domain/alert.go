package domain

import (
	"fmt"
	"time"
)

// AlertType selects how an alert's trigger condition is expressed.
type AlertType string

const (
	// AlertAbsolute triggers once the current rate reaches a fixed target.
	AlertAbsolute AlertType = "absolute"
	// AlertPercentage triggers once the rate has risen a given percentage
	// above the rate sampled at creation time.
	AlertPercentage AlertType = "percentage"
	// AlertThreshold triggers when the rate crosses a threshold in a chosen
	// direction.
	AlertThreshold AlertType = "threshold"
)

// ThresholdDirection is the crossing direction for threshold alerts.
type ThresholdDirection string

const (
	DirectionAbove ThresholdDirection = "above"
	DirectionBelow ThresholdDirection = "below"
)

// AlertStatus is the evaluated display state of an alert.
type AlertStatus string

const (
	StatusTriggered AlertStatus = "triggered"
	StatusWaiting   AlertStatus = "waiting"
)

// Alert is a user-defined rate alert. Alerts are presentation-only: they carry
// a badge state, no delivery. The list is persisted locally as a JSON array
// under a fixed key and rewritten on every mutation.
type Alert struct {
	ID           string    `json:"id"`
	FromCurrency string    `json:"fromCurrency"`
	ToCurrency   string    `json:"toCurrency"`
	Type         AlertType `json:"type"`

	// Type parameters. TargetRate for absolute alerts; Percentage and
	// BaseRate for percentage alerts (BaseRate is fixed at creation, never
	// re-sampled); ThresholdRate and Direction for threshold alerts.
	TargetRate    float64            `json:"targetRate,omitempty"`
	Percentage    float64            `json:"percentage,omitempty"`
	BaseRate      float64            `json:"baseRate,omitempty"`
	ThresholdRate float64            `json:"thresholdRate,omitempty"`
	Direction     ThresholdDirection `json:"direction,omitempty"`

	CurrentRate float64   `json:"currentRate"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Pair returns the alert's currency pair.
func (a *Alert) Pair() Pair {
	return NewPair(a.FromCurrency, a.ToCurrency)
}

// Validate checks that the alert's type parameters are usable.
func (a *Alert) Validate() error {
	if !a.Pair().IsValid() {
		return fmt.Errorf("alert has invalid pair %q/%q", a.FromCurrency, a.ToCurrency)
	}
	switch a.Type {
	case AlertAbsolute:
		if a.TargetRate <= 0 {
			return fmt.Errorf("absolute alert requires a positive target rate, got %v", a.TargetRate)
		}
	case AlertPercentage:
		if a.Percentage == 0 {
			return fmt.Errorf("percentage alert requires a non-zero percentage")
		}
	case AlertThreshold:
		if a.ThresholdRate <= 0 {
			return fmt.Errorf("threshold alert requires a positive threshold rate, got %v", a.ThresholdRate)
		}
		if a.Direction != DirectionAbove && a.Direction != DirectionBelow {
			return fmt.Errorf("threshold alert requires direction %q or %q", DirectionAbove, DirectionBelow)
		}
	default:
		return fmt.Errorf("unknown alert type %q", a.Type)
	}
	return nil
}
