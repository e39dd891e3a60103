// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize    = errors.New("dst too small for the requested frames")
	ErrUnsupportedLayout = errors.New("unsupported channel layout")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFormatMismatch    = errors.New("frame format does not match resampler input")
	ErrClosed            = errors.New("resampler closed")
)
