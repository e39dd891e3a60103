// SPDX-License-Identifier: EPL-2.0

// Package mp3 provides MP3 demuxing.
//
// This package uses github.com/hajimehoshi/go-mp3, which decodes whole MPEG
// frames internally and always produces 16-bit stereo. The demuxer exposes
// that output as one packet per frame (FrameSamples samples) tagged
// codec.CodecMP3; the PCM package decodes those packets.
//
// Packets are timestamped in samples. Seeking goes through go-mp3, which
// needs the input to be an io.Seeker.
package mp3
