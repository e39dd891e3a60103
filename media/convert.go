// SPDX-License-Identifier: EPL-2.0

package media

import (
	"encoding/binary"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/mediapipe/utils"
)

// DecodeFloat32 reads samples samples of every channel from planes (stored
// in format) into dst as interleaved float32. dst must hold at least
// samples*channels values.
func DecodeFloat32(format AudioFormat, planes [][]byte, samples int, dst []float32) {
	channels := format.Channels()
	bps := format.SampleFormat.BytesPerSample()
	planar := format.SampleFormat.IsPlanar()
	read := readerFor(format.SampleFormat.Packed())

	for i := range samples {
		for c := range channels {
			var b []byte
			if planar {
				b = planes[c][i*bps:]
			} else {
				b = planes[0][(i*channels+c)*bps:]
			}
			dst[i*channels+c] = read(b)
		}
	}
}

// EncodeFloat32 converts interleaved float32 samples into newly allocated
// planes in format.
func EncodeFloat32(format AudioFormat, src []float32, samples int) [][]byte {
	frame := NewFrame(format, samples)
	channels := format.Channels()
	bps := format.SampleFormat.BytesPerSample()
	planar := format.SampleFormat.IsPlanar()
	write := writerFor(format.SampleFormat.Packed())

	for i := range samples {
		for c := range channels {
			var b []byte
			if planar {
				b = frame.Planes[c][i*bps:]
			} else {
				b = frame.Planes[0][(i*channels+c)*bps:]
			}
			write(b, src[i*channels+c])
		}
	}
	return frame.Planes
}

func readerFor(f SampleFormat) func([]byte) float32 {
	switch f {
	case SampleFormatU8:
		return func(b []byte) float32 { return utils.Uint8ToFloat32(b[0]) }
	case SampleFormatS16:
		return func(b []byte) float32 { return utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(b))) }
	case SampleFormatS32:
		return func(b []byte) float32 { return utils.Int32ToFloat32(int32(binary.LittleEndian.Uint32(b))) }
	case SampleFormatF32:
		return func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }
	case SampleFormatF64:
		return func(b []byte) float32 { return float32(math.Float64frombits(binary.LittleEndian.Uint64(b))) }
	}
	return func([]byte) float32 { return 0 }
}

func writerFor(f SampleFormat) func([]byte, float32) {
	switch f {
	case SampleFormatU8:
		return func(b []byte, v float32) { b[0] = utils.Float32ToUint8(v) }
	case SampleFormatS16:
		return func(b []byte, v float32) { binary.LittleEndian.PutUint16(b, uint16(utils.Float32ToInt16(v))) }
	case SampleFormatS32:
		return func(b []byte, v float32) { binary.LittleEndian.PutUint32(b, uint32(utils.Float32ToInt32(v))) }
	case SampleFormatF32:
		return func(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }
	case SampleFormatF64:
		return func(b []byte, v float32) { binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v))) }
	}
	return func([]byte, float32) {}
}

// IntBuffer converts the chunk to an interleaved go-audio IntBuffer. Integer
// formats keep their bit depth; float formats are quantised to 16 bits.
func (c *PCMChunk) IntBuffer() *goaudio.IntBuffer {
	channels := c.Format.Channels()
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: c.Format.SampleRate},
		Data:   make([]int, c.Samples*channels),
	}

	bps := c.Format.SampleFormat.BytesPerSample()
	planar := c.Format.SampleFormat.IsPlanar()
	at := func(i, ch int) []byte {
		if planar {
			return c.Planes[ch][i*bps:]
		}
		return c.Planes[0][(i*channels+ch)*bps:]
	}

	switch c.Format.SampleFormat.Packed() {
	case SampleFormatU8:
		buf.SourceBitDepth = 8
		for i := range c.Samples {
			for ch := range channels {
				buf.Data[i*channels+ch] = int(at(i, ch)[0]) - 128
			}
		}
	case SampleFormatS16:
		buf.SourceBitDepth = 16
		for i := range c.Samples {
			for ch := range channels {
				buf.Data[i*channels+ch] = int(int16(binary.LittleEndian.Uint16(at(i, ch))))
			}
		}
	case SampleFormatS32:
		buf.SourceBitDepth = 32
		for i := range c.Samples {
			for ch := range channels {
				buf.Data[i*channels+ch] = int(int32(binary.LittleEndian.Uint32(at(i, ch))))
			}
		}
	default:
		buf.SourceBitDepth = 16
		for i, v := range c.Float32s() {
			buf.Data[i] = int(utils.Float32ToInt16(v))
		}
	}
	return buf
}
