package stringdict

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultDictionaryKeySizeThreshold is used when no threshold is configured.
const DefaultDictionaryKeySizeThreshold = 0.8

func validateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return errors.Wrapf(ErrInvalidThreshold, "got %v", threshold)
	}
	return nil
}

// useDictionary decides the encoding of a unit with the given number of
// distinct and total non-null values. An empty unit is trivially eligible
// for the dictionary, a threshold of 0 disables it for anything else.
func useDictionary(distinct, total int, threshold float64) bool {
	if total == 0 {
		return true
	}
	if threshold == 0 {
		return false
	}
	return float64(distinct)/float64(total) <= threshold
}
