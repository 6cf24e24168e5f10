package anomaly

import (
	"fmt"
)

// Detector flags readings whose consumption against the previous reading looks wrong
type Detector struct {
	maxConsumption  float64
	maxGrowthFactor float64
}

// NewDetector creates a new anomaly detector with the specified thresholds
func NewDetector(maxConsumption, maxGrowthFactor float64) *Detector {
	return &Detector{
		maxConsumption:  maxConsumption,
		maxGrowthFactor: maxGrowthFactor,
	}
}

// Consumption returns the units consumed between the previous and the current reading
func Consumption(value, previous float64) float64 {
	return value - previous
}

// DetectAnomaly checks the reading against the previous reading of the same meter
func (d *Detector) DetectAnomaly(value, previous float64) (bool, string) {
	consumption := Consumption(value, previous)

	if consumption < 0 {
		return true, "current reading is lower than previous reading"
	}

	// Growth factor is checked first: it is the stronger signal of a misread digit
	if previous > 0 && d.maxGrowthFactor > 0 && value > d.maxGrowthFactor*previous {
		return true, fmt.Sprintf("reading %.2f exceeds %.1fx previous reading %.2f",
			value, d.maxGrowthFactor, previous)
	}

	if d.maxConsumption > 0 && consumption > d.maxConsumption {
		return true, fmt.Sprintf("unusually high consumption: %.2f units exceeds %.2f",
			consumption, d.maxConsumption)
	}

	return false, ""
}
