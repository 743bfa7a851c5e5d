package thought

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every record construction or vocabulary failure.
var ErrValidation = errors.New("validation error")

// Record invariant errors.
var (
	ErrEmptyContent     = fmt.Errorf("%w: thought content must not be empty", ErrValidation)
	ErrInvalidNumber    = fmt.Errorf("%w: thought number must be at least 1", ErrValidation)
	ErrTotalBelowNumber = fmt.Errorf("%w: total thoughts must be >= thought number", ErrValidation)
	ErrConfidenceRange  = fmt.Errorf("%w: confidence score must be between 0 and 1", ErrValidation)
)

// Vocabulary errors.
var (
	ErrUnknownStage = fmt.Errorf("%w: unknown stage", ErrValidation)
	ErrUnknownRisk  = fmt.Errorf("%w: invalid risk level", ErrValidation)
)
