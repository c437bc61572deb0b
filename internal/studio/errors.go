package studio

import "errors"

var (
	ErrNotFound       = errors.New("asset not found")
	ErrNotRemixable   = errors.New("asset has no completed result to remix")
	ErrNoResult       = errors.New("asset has no result yet")
	ErrNotRetryable   = errors.New("asset is not idle or failed")
	ErrBusy           = errors.New("studio is busy rendering")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrUnknownProduct = errors.New("unknown product")
	ErrNoSuggestion   = errors.New("no such suggestion")

	errDropped = errors.New("asset removed during render")
)
