// SPDX-License-Identifier: EPL-2.0

package codec

import "errors"

var (
	// ErrAgain is returned by Decoder.ReceiveFrame when more input is needed,
	// and by SendPacket when output must be received first.
	ErrAgain = errors.New("codec: resource temporarily unavailable")

	// ErrInvalidData marks a packet the decoder could not parse. The
	// decoder stays usable.
	ErrInvalidData = errors.New("codec: invalid data")

	ErrEOFSent = errors.New("codec: drain already requested")
)
