package validator

import (
	"testing"
)

func validInput() ReadingInput {
	return ReadingInput{
		MeterID:       "M-1001",
		AddressID:     "A-17",
		RouteID:       "R-1234",
		Value:         "12450",
		PreviousValue: "12100",
	}
}

func TestValidateReading_ValidData(t *testing.T) {
	v := NewValidator(true)

	value, previous, result := v.ValidateReading(validInput())

	if !result.IsValid {
		t.Fatalf("Expected valid result, got invalid: %s", result.Reason)
	}
	if value != 12450 {
		t.Errorf("Expected value 12450, got %f", value)
	}
	if previous == nil || *previous != 12100 {
		t.Errorf("Expected previous 12100, got %v", previous)
	}
}

func TestValidateReading_NoPrevious(t *testing.T) {
	v := NewValidator(true)
	input := validInput()
	input.PreviousValue = ""

	_, previous, result := v.ValidateReading(input)

	if !result.IsValid {
		t.Fatalf("Expected valid result, got invalid: %s", result.Reason)
	}
	if previous != nil {
		t.Errorf("Expected nil previous, got %v", *previous)
	}
}

func TestValidateReading_EmptyMeterID(t *testing.T) {
	v := NewValidator(true)
	input := validInput()
	input.MeterID = " "

	_, _, result := v.ValidateReading(input)

	if result.IsValid {
		t.Error("Expected invalid result for empty meter id")
	}
	if result.Reason != "empty meter id" {
		t.Errorf("Expected 'empty meter id', got '%s'", result.Reason)
	}
}

func TestValidateReading_InvalidValue(t *testing.T) {
	v := NewValidator(true)
	input := validInput()
	input.Value = "12a45"

	_, _, result := v.ValidateReading(input)

	if result.IsValid {
		t.Error("Expected invalid result for non-numeric value")
	}
}

func TestValidateReading_NegativeValue(t *testing.T) {
	v := NewValidator(false)
	input := validInput()
	input.Value = "-5"

	_, _, result := v.ValidateReading(input)

	if result.IsValid {
		t.Error("Expected invalid result for negative value")
	}
}

func TestValidateReading_LowerThanPrevious(t *testing.T) {
	v := NewValidator(true)
	input := validInput()
	input.Value = "12000"

	_, _, result := v.ValidateReading(input)

	if result.IsValid {
		t.Error("Expected invalid result for reading lower than previous")
	}
	if result.Reason != "new reading cannot be less than previous reading" {
		t.Errorf("Unexpected reason: %s", result.Reason)
	}
}

func TestValidateReading_LowerThanPreviousAllowed(t *testing.T) {
	v := NewValidator(false)
	input := validInput()
	input.Value = "12000"

	_, _, result := v.ValidateReading(input)

	if !result.IsValid {
		t.Errorf("Expected valid result without monotonic check, got: %s", result.Reason)
	}
}
