package mocaperr

import "errors"

// Kind names the error class used for exit codes and log fields.
type Kind string

const (
	KindTopology      Kind = "topology"
	KindParse         Kind = "parse"
	KindRange         Kind = "range"
	KindOverlap       Kind = "overlap"
	KindCompatibility Kind = "compatibility"
	KindState         Kind = "state"
	KindOther         Kind = "other"
)

// Classify maps an error to its Kind. A ParseError wins over the error it
// wraps, so a duplicate joint name found while reading a file is a parse
// failure even though it carries a topology cause.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrInvalidTopology):
		return KindTopology
	case errors.Is(err, ErrRangeOutOfBounds):
		return KindRange
	case errors.Is(err, ErrOverlap):
		return KindOverlap
	case errors.Is(err, ErrChannelCompatibility):
		return KindCompatibility
	case errors.Is(err, ErrNotInitialized):
		return KindState
	default:
		return KindOther
	}
}

// IsDataError reports whether err was caused by invalid input data rather
// than the environment (I/O, permissions, configuration).
func IsDataError(err error) bool {
	switch Classify(err) {
	case KindTopology, KindParse, KindRange, KindOverlap, KindCompatibility:
		return true
	default:
		return false
	}
}
