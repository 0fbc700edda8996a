package trainer

import "errors"

// Sentinel kinds for training errors.
var (
	ErrNoSamples      = errors.New("no training samples")
	ErrArtifactExists = errors.New("artifact already exists")
	ErrInvalidInput   = errors.New("invalid training input")
)
