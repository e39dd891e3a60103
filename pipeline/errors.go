// SPDX-License-Identifier: EPL-2.0

package pipeline

import "errors"

var (
	// ErrOpenFailed indicates the input could not be opened
	ErrOpenFailed = errors.New("open failed")

	// ErrUnsupportedFormat indicates no backend recognised the input, it
	// has no usable audio stream, or its codec has no decoder
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorrupt indicates unparsable container headers or a single bad
	// packet. A bad packet is skipped and decoding continues
	ErrCorrupt = errors.New("corrupt data")

	// ErrDecodeFailed indicates the codec reached a state it cannot recover
	// from. It ends the session
	ErrDecodeFailed = errors.New("decode failed")

	// ErrDecodeRejected indicates the codec refused a packet in its current
	// state
	ErrDecodeRejected = errors.New("packet rejected by decoder")

	// ErrSeekFailed indicates the container could not reposition. The
	// session keeps streaming from where it was
	ErrSeekFailed = errors.New("seek failed")

	// ErrReadFailed indicates an I/O error while reading packets. Retrying
	// is left to the caller
	ErrReadFailed = errors.New("read failed")

	// ErrConfigMismatch indicates the resampler could not be configured for
	// the requested formats. It ends the session
	ErrConfigMismatch = errors.New("resampler configuration failed")

	// ErrNeedMorePackets is returned by FrameDecoder.NextFrame when the codec
	// needs another packet. It is a retry signal, not a failure
	ErrNeedMorePackets = errors.New("decoder needs more packets")

	// ErrClosed indicates use of a closed session or component
	ErrClosed = errors.New("pipeline closed")

	// errAborted stops a drain when a seek or close is pending
	errAborted = errors.New("drain aborted")
)
