package tracking

import "errors"

var (
	// ErrEmptyTemplate is returned by ProcessFrame while no template is set.
	ErrEmptyTemplate = errors.New("no template selected")

	// ErrInvalidRectangle is returned when a selection covers no pixels of
	// the frame.
	ErrInvalidRectangle = errors.New("selection rectangle is empty")
)
