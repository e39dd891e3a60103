// SPDX-License-Identifier: EPL-2.0

package pcm

import "errors"

var (
	ErrUnknownCodec = errors.New("unknown PCM codec")
	ErrNoChannels   = errors.New("PCM stream has no channels")
)
