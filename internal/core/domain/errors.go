package domain

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("domain: not found")
	// ErrUnknownLayerType is returned when a layer type tag is not one of the five kinds.
	ErrUnknownLayerType = errors.New("domain: unknown layer type")
	// ErrInvalidExport is returned when an export request fails validation.
	ErrInvalidExport = errors.New("domain: invalid export request")
	// ErrMissingAudio is returned when an export or session has no usable audio.
	ErrMissingAudio = errors.New("domain: missing audio")
	// ErrInvalidAudio is returned when uploaded audio cannot be decoded.
	ErrInvalidAudio = errors.New("domain: invalid audio")
	// ErrInvalidSettings is returned when layer settings or a settings patch do not decode.
	ErrInvalidSettings = errors.New("domain: invalid layer settings")
	// ErrJobNotReady is returned when an export's video is requested before it completed.
	ErrJobNotReady = errors.New("domain: export not finished")
)
