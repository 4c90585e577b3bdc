package assistant

import "errors"

// Errors shared by assistant implementations.
var (
	// ErrInvalidConfig is returned when the assistant configuration is
	// incomplete or invalid.
	ErrInvalidConfig = errors.New("invalid assistant configuration")

	// ErrInvalidResponse is returned when the model produces a response the
	// implementation cannot interpret.
	ErrInvalidResponse = errors.New("invalid model response")

	// ErrContentBlocked is returned when the model refuses to answer due to
	// safety filtering.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrUnknownTool is returned when the model requests a tool that is not
	// registered.
	ErrUnknownTool = errors.New("unknown tool")
)
