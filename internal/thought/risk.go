package thought

import (
	"fmt"
	"strings"
)

// RiskLevel is the risk attached to a thought.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel resolves a risk level case-insensitively.
// Blank input resolves to RiskMedium.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "", RiskMedium:
		return RiskMedium, nil
	case RiskLow:
		return RiskLow, nil
	case RiskHigh:
		return RiskHigh, nil
	}
	return "", fmt.Errorf("%w '%s'. Choose from: low, medium, high", ErrUnknownRisk, s)
}

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

func (r RiskLevel) String() string {
	return string(r)
}
