package overrides

import "errors"

// Domain errors for override operations.
var (
	ErrUnknownCriterionCode = errors.New("criterion code not present in run")
	ErrNoOverride           = errors.New("no active override for criterion code")
	ErrInvalidDecision      = errors.New("final decision is not a valid decision value")
	ErrInvalidReason        = errors.New("reason code is not a valid override reason")
)
