// ABOUTME: Error types for the image pipeline: unreadable, empty, oversized, unsupported, and undecodable input.
// ABOUTME: Every error here means the insertion is aborted before any editor state changes.

package imaging

import (
	"errors"
	"fmt"
)

// ErrEmpty is returned for zero-length uploads.
var ErrEmpty = errors.New("image file is empty")

// ReadError wraps a failure to read the uploaded bytes.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "read image: " + e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

// TooLargeError reports an upload above the configured byte limit, or one
// whose declared dimensions exceed the pixel limit (MaxPixels set).
type TooLargeError struct {
	Limit int64

	Width     int
	Height    int
	MaxPixels int64
}

func (e *TooLargeError) Error() string {
	if e.MaxPixels > 0 {
		return fmt.Sprintf("image is %dx%d, exceeds %d megapixel limit", e.Width, e.Height, e.MaxPixels/1_000_000)
	}
	return fmt.Sprintf("image exceeds %d MB limit", e.Limit>>20)
}

// UnsupportedTypeError reports a file whose sniffed type is not a decodable image.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q", e.Type)
}

// DecodeError wraps a failure to decode an image of a supported type.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Type, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError wraps a failure to re-encode the scaled image.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode jpeg: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }

// IsInputError reports whether err was caused by the uploaded file itself,
// as opposed to cancellation or an internal failure.
func IsInputError(err error) bool {
	if errors.Is(err, ErrEmpty) {
		return true
	}
	var (
		re *ReadError
		te *TooLargeError
		ue *UnsupportedTypeError
		de *DecodeError
	)
	return errors.As(err, &re) || errors.As(err, &te) || errors.As(err, &ue) || errors.As(err, &de)
}
