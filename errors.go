package stringdict

import "github.com/pkg/errors"

var (
	// ErrInvalidThreshold is returned by NewFileWriter and NewDictionaryEncoder
	// when the dictionary key size threshold is not within [0, 1].
	ErrInvalidThreshold = errors.New("dictionary key size threshold must be within [0, 1]")

	// ErrNoDictionary is returned when a dictionary operation is requested on
	// a batch that has no dictionary attached, e.g. Decode on a direct batch.
	ErrNoDictionary = errors.New("batch has no dictionary attached")

	// ErrOutOfRange is returned for lookups of a rank or row that does not
	// exist. Seeing it while reading a file means the rank stream and the
	// dictionary do not belong together.
	ErrOutOfRange = errors.New("out of range")

	// ErrMemoryLimit is returned when reading would exceed the memory limit
	// configured with WithMaximumMemorySize.
	ErrMemoryLimit = errors.New("memory limit exceeded")

	// ErrDictionaryState is returned when a dictionary is used in the wrong
	// life cycle phase, e.g. Insert after FinalizeSorted.
	ErrDictionaryState = errors.New("invalid dictionary state")
)
