package validator

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

// ReadingInput represents a reading as entered by the operator
type ReadingInput struct {
	MeterID       string
	AddressID     string
	RouteID       string
	Value         string
	PreviousValue string
}

// Validator handles reading validation with configurable parameters
type Validator struct {
	requireMonotonic bool
}

// NewValidator creates a new validator. With requireMonotonic a reading may not be
// lower than the previous reading of the same meter.
func NewValidator(requireMonotonic bool) *Validator {
	return &Validator{
		requireMonotonic: requireMonotonic,
	}
}

// ValidateReading validates a single reading and returns its numeric value and, if
// one was supplied, the numeric previous value
func (v *Validator) ValidateReading(input ReadingInput) (value float64, previous *float64, result ValidationResult) {
	result = ValidationResult{IsValid: true}

	switch {
	case strings.TrimSpace(input.MeterID) == "":
		return 0, nil, invalid("empty meter id")
	case strings.TrimSpace(input.AddressID) == "":
		return 0, nil, invalid("empty address id")
	case strings.TrimSpace(input.RouteID) == "":
		return 0, nil, invalid("empty route id")
	}

	value, err := parseValue(input.Value)
	if err != nil {
		return 0, nil, invalid(fmt.Sprintf("invalid reading value: %v", err))
	}

	if strings.TrimSpace(input.PreviousValue) != "" {
		prev, err := parseValue(input.PreviousValue)
		if err != nil {
			return value, nil, invalid(fmt.Sprintf("invalid previous reading: %v", err))
		}
		previous = &prev

		if v.requireMonotonic && value < prev {
			return value, previous, invalid("new reading cannot be less than previous reading")
		}
	}

	return value, previous, result
}

func parseValue(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("only digits are allowed in %q", s)
		}
	}
	return strconv.ParseFloat(s, 64)
}

func invalid(reason string) ValidationResult {
	return ValidationResult{IsValid: false, Reason: reason}
}
