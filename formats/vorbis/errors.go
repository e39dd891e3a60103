// SPDX-License-Identifier: EPL-2.0

package vorbis

import "errors"

var (
	// ErrNotVorbisFile indicates the input is not an Ogg Vorbis stream
	ErrNotVorbisFile = errors.New("not an Ogg Vorbis file")

	// ErrBadPage indicates an Ogg page failed its checksum or version check
	ErrBadPage = errors.New("corrupt Ogg page")

	// ErrMissingHeaders indicates the stream ended before the three Vorbis
	// header packets were read
	ErrMissingHeaders = errors.New("missing Vorbis header packets")

	// ErrUnsupportedChannels indicates a channel count Vorbis defines no
	// order for
	ErrUnsupportedChannels = errors.New("unsupported Vorbis channel count")

	// ErrUnknownStream indicates a seek on a stream other than 0
	ErrUnknownStream = errors.New("unknown stream")
)
