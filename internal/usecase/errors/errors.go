package errors

import "errors"

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("resource not found")
	ErrConflict      = errors.New("resource conflict")
	ErrInternalError = errors.New("internal server error")
)

// Pipeline errors
var (
	ErrUnsupportedFormat = errors.New("unsupported transcript format")
	ErrEmptyTranscript   = errors.New("transcript has no usable content")
	ErrStorageDisabled   = errors.New("blob storage is not configured")
	ErrWarehouseDisabled = errors.New("warehouse is not configured")
)

// Job errors
var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobExists   = errors.New("job already exists")
)

// Warehouse errors
var (
	ErrRecordNotFound  = errors.New("scored record not found")
	ErrMappingNotFound = errors.New("client mapping not found")
)
