package compositor

import "errors"

var (
	ErrDecode  = errors.New("source image cannot be decoded")
	ErrSurface = errors.New("drawing surface unavailable")
)

type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode source image: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

type SurfaceError struct {
	Op  string
	Err error
}

func (e *SurfaceError) Error() string {
	if e.Err == nil {
		return "drawing surface: " + e.Op
	}
	return "drawing surface: " + e.Op + ": " + e.Err.Error()
}

func (e *SurfaceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSurface}
	}
	return []error{ErrSurface, e.Err}
}
