package sim

import "errors"

// Error taxonomy. Every failure surfaced by the sampler or simulator wraps one
// of these sentinels, so callers can branch with errors.Is.
var (
	// ErrConfiguration reports a malformed or missing configuration entry.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedDistributionType reports an unknown distribution `type`.
	ErrUnsupportedDistributionType = errors.New("unsupported distribution type")

	// ErrInvalidParameter reports a distribution parameter outside its domain,
	// such as a non-positive std or probabilities that do not sum to 1.
	ErrInvalidParameter = errors.New("invalid distribution parameter")

	// ErrInconsistentSampleLength reports sample vectors of unequal length.
	ErrInconsistentSampleLength = errors.New("inconsistent sample length")
)
