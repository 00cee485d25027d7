package model

import "errors"

var (
	// ErrModelNotLoaded is returned when predicting before the artifacts were loaded
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrArtifactNotFound is returned when an artifact file does not exist
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrInvalidArtifact is returned when an artifact cannot be decoded or is inconsistent
	ErrInvalidArtifact = errors.New("invalid artifact")

	// ErrUnsupportedObjective is returned for boosters whose output is not a probability
	ErrUnsupportedObjective = errors.New("unsupported model objective")

	// ErrMissingLocation is returned when city or area is absent from a request
	ErrMissingLocation = errors.New("city and area are required")

	// ErrInvalidField is returned when an optional request field cannot be coerced to an integer
	ErrInvalidField = errors.New("invalid field")
)
