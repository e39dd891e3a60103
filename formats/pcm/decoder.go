// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

// layout describes how one codec id stores a sample.
type layout struct {
	width     int // bytes per stored sample
	bigEndian bool
	format    media.SampleFormat
}

var layouts = map[string]layout{
	codec.CodecPCMU8:    {1, false, media.SampleFormatU8},
	codec.CodecPCMS16LE: {2, false, media.SampleFormatS16},
	codec.CodecPCMS16BE: {2, true, media.SampleFormatS16},
	codec.CodecPCMS24LE: {3, false, media.SampleFormatS32},
	codec.CodecPCMS24BE: {3, true, media.SampleFormatS32},
	codec.CodecPCMS32LE: {4, false, media.SampleFormatS32},
	codec.CodecPCMS32BE: {4, true, media.SampleFormatS32},
	codec.CodecPCMF32LE: {4, false, media.SampleFormatF32},
	codec.CodecPCMF64LE: {8, false, media.SampleFormatF64},
}

// SampleFormat returns the format frames of codecID decode to.
func SampleFormat(codecID string) (media.SampleFormat, bool) {
	l, ok := layouts[codecID]
	return l.format, ok
}

// Register adds every PCM codec to reg. MP3 streams are registered too: the
// MP3 demuxer hands out packets that are already s16le PCM.
func Register(reg *codec.Registry) {
	for id := range layouts {
		reg.RegisterDecoder(id, NewDecoder)
	}
	reg.RegisterDecoder(codec.CodecMP3, func(stream media.StreamDescriptor) (codec.Decoder, error) {
		stream.CodecID = codec.CodecPCMS16LE
		return NewDecoder(stream)
	})
}

// Decoder is a codec.Decoder for PCM. It holds at most one packet.
type Decoder struct {
	layout layout
	format media.AudioFormat

	pending  *media.Packet
	draining bool
}

func NewDecoder(stream media.StreamDescriptor) (codec.Decoder, error) {
	l, ok := layouts[stream.CodecID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, stream.CodecID)
	}
	if stream.Layout.Channels() == 0 {
		return nil, ErrNoChannels
	}

	return &Decoder{
		layout: l,
		format: media.AudioFormat{
			SampleFormat: l.format,
			SampleRate:   stream.SampleRate,
			Layout:       stream.Layout,
		},
	}, nil
}

func (d *Decoder) SendPacket(pkt *media.Packet) error {
	if d.draining {
		return codec.ErrEOFSent
	}
	if pkt == nil {
		d.draining = true
		return nil
	}
	if d.pending != nil {
		return codec.ErrAgain
	}

	frameSize := d.layout.width * d.format.Channels()
	if len(pkt.Data) == 0 || len(pkt.Data)%frameSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %d-byte frames",
			codec.ErrInvalidData, len(pkt.Data), frameSize)
	}

	d.pending = pkt
	return nil
}

func (d *Decoder) ReceiveFrame() (*media.Frame, error) {
	if d.pending == nil {
		if d.draining {
			return nil, io.EOF
		}
		return nil, codec.ErrAgain
	}

	pkt := d.pending
	d.pending = nil

	samples := len(pkt.Data) / (d.layout.width * d.format.Channels())
	frame := media.NewFrame(d.format, samples)
	frame.PTS = pkt.PTS
	d.convert(frame.Planes[0], pkt.Data)

	return frame, nil
}

// convert rewrites stored samples into little-endian samples of the output
// format.
func (d *Decoder) convert(dst, src []byte) {
	l := d.layout
	switch {
	case l.width == 3:
		for i, j := 0, 0; i+3 <= len(src); i, j = i+3, j+4 {
			var v uint32
			if l.bigEndian {
				v = uint32(src[i])<<24 | uint32(src[i+1])<<16 | uint32(src[i+2])<<8
			} else {
				v = uint32(src[i+2])<<24 | uint32(src[i+1])<<16 | uint32(src[i])<<8
			}
			binary.LittleEndian.PutUint32(dst[j:], v)
		}
	case l.bigEndian && l.width == 2:
		for i := 0; i+2 <= len(src); i += 2 {
			binary.LittleEndian.PutUint16(dst[i:], binary.BigEndian.Uint16(src[i:]))
		}
	case l.bigEndian && l.width == 4:
		for i := 0; i+4 <= len(src); i += 4 {
			binary.LittleEndian.PutUint32(dst[i:], binary.BigEndian.Uint32(src[i:]))
		}
	default:
		copy(dst, src)
	}
}

func (d *Decoder) Reset() {
	d.pending = nil
	d.draining = false
}

func (d *Decoder) Close() error {
	d.pending = nil
	return nil
}
