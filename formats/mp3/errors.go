// SPDX-License-Identifier: EPL-2.0

package mp3

import "errors"

var (
	// ErrNotMP3File indicates go-mp3 could not find a valid frame
	ErrNotMP3File = errors.New("not an MP3 file")

	// ErrUnknownStream indicates a seek on a stream other than 0
	ErrUnknownStream = errors.New("MP3 files have a single stream")
)
