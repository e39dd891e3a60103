// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) demuxing.
//
// This package uses github.com/go-audio/aiff to parse AIFF and AIFF-C files.
// The big-endian samples are repackaged into little-endian PCM packets so
// the PCM codec can decode them:
//   - 8 and 16 bit files produce pcm_s16le packets
//   - 24 and 32 bit files produce pcm_s32le packets
//
// Narrower samples are shifted left to fill the output width.
//
// # Seeking
//
// go-audio reads the sound data chunk sequentially, so Seek rewinds the
// input and skips forward. Seeking is exact but costs time proportional to
// the target position.
package aiff
