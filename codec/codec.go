// SPDX-License-Identifier: EPL-2.0

package codec

import (
	"io"

	"github.com/ik5/mediapipe/media"
)

// Codec ids shared by demuxers and decoders.
const (
	CodecPCMU8    = "pcm_u8"
	CodecPCMS16LE = "pcm_s16le"
	CodecPCMS16BE = "pcm_s16be"
	CodecPCMS24LE = "pcm_s24le"
	CodecPCMS24BE = "pcm_s24be"
	CodecPCMS32LE = "pcm_s32le"
	CodecPCMS32BE = "pcm_s32be"
	CodecPCMF32LE = "pcm_f32le"
	CodecPCMF64LE = "pcm_f64le"
	CodecMP3      = "mp3"
	CodecVorbis   = "vorbis"
)

// Format recognises one container type.
type Format interface {
	Name() string
	// Extensions lists lower-case file extensions without the dot.
	Extensions() []string
	// Probe reports whether header, the first bytes of the input, looks like
	// this format.
	Probe(header []byte) bool
	Open(r io.ReadSeeker) (Demuxer, error)
}

// Demuxer splits a container into packets.
type Demuxer interface {
	Streams() []media.StreamDescriptor
	Metadata() media.Metadata
	// ReadPacket returns the next packet of any stream, or io.EOF.
	ReadPacket() (*media.Packet, error)
	// Seek positions the demuxer on a random-access point at or before ts,
	// expressed in the time base of stream.
	Seek(stream int, ts int64) error
	Close() error
}

// Decoder is a two-phase packet decoder.
type Decoder interface {
	// SendPacket submits one packet. A nil packet requests a drain.
	SendPacket(pkt *media.Packet) error
	// ReceiveFrame returns the next decoded frame, ErrAgain when more input
	// is required, or io.EOF once a drain has completed.
	ReceiveFrame() (*media.Frame, error)
	// Reset discards buffered state so decoding can restart after a seek.
	Reset()
	Close() error
}

// DecoderFactory opens a decoder for a stream.
type DecoderFactory func(stream media.StreamDescriptor) (Decoder, error)

// Resampler converts frames from one audio format to another.
type Resampler interface {
	// Convert returns the output available after consuming frame. The
	// result may hold zero samples.
	Convert(frame *media.Frame) (*media.Frame, error)
	// Flush returns the samples still held back by the delay line and
	// resets the resampler.
	Flush() (*media.Frame, error)
	// Delay is the amount of input buffered but not yet output, expressed
	// in units of 1/base seconds.
	Delay(base int) int64
	Close() error
}

// ResamplerFactory opens a resampler between two formats.
type ResamplerFactory func(in, out media.AudioFormat) (Resampler, error)
