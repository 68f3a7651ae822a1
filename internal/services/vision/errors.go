package vision

import "errors"

var (
	// ErrEmptyImage is returned when an operation receives an empty Mat.
	ErrEmptyImage = errors.New("image is empty")

	// ErrInsufficientCorrespondences is returned when fewer than
	// MinCorrespondences point pairs reach homography estimation.
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")

	// ErrDegenerateConfiguration is returned when the point pairs are colinear
	// or the estimated transform cannot be inverted.
	ErrDegenerateConfiguration = errors.New("degenerate point configuration")

	// ErrMismatchedCorrespondences is returned when the source and destination
	// point sequences differ in length.
	ErrMismatchedCorrespondences = errors.New("source and destination point counts differ")
)
