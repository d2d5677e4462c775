package pipeline

import (
	"errors"
	"fmt"

	"photolog/internal/services"
)

var (
	// ErrUnknownType is returned when a record names a type with no kind.
	ErrUnknownType = fmt.Errorf("%w: unknown job type", services.ErrValidation)
	// ErrUnknownExtension is returned when an upload's extension is in none
	// of the configured sets.
	ErrUnknownExtension = fmt.Errorf("%w: unknown file extension", services.ErrConfiguration)
	// ErrUnknownStep is returned when a record's step is not in its chain.
	ErrUnknownStep = fmt.Errorf("%w: unknown step", services.ErrValidation)
	// ErrInvalidChain is returned by NewChain for malformed step tables.
	ErrInvalidChain = errors.New("invalid step chain")
)
