// SPDX-License-Identifier: EPL-2.0

package media

import "errors"

var (
	ErrUnknownSampleFormat = errors.New("unknown sample format")
	ErrInvalidSampleRate   = errors.New("invalid sample rate")
	ErrEmptyLayout         = errors.New("channel layout has no channels")
	ErrShortBuffer         = errors.New("buffer shorter than declared sample count")
)
