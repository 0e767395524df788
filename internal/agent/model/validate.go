package model

import (
	"fmt"
	"strings"
)

const (
	maxAge        = 120
	maxIncome     = 100_000_000
	maxFamilySize = 50
	minSchemeName = 3
)

func ValidateAge(age int) error {
	if age < 0 || age > maxAge {
		return fmt.Errorf("age %d outside 0-%d", age, maxAge)
	}
	return nil
}

func ValidateIncome(income float64) error {
	if income < 0 || income > maxIncome {
		return fmt.Errorf("income %.0f outside 0-%d", income, maxIncome)
	}
	return nil
}

func ValidateFamilySize(n int) error {
	if n < 1 || n > maxFamilySize {
		return fmt.Errorf("family size %d outside 1-%d", n, maxFamilySize)
	}
	return nil
}

func ValidateSchemeName(name string) error {
	if len(strings.TrimSpace(name)) < minSchemeName {
		return fmt.Errorf("scheme name %q shorter than %d characters", name, minSchemeName)
	}
	return nil
}
