// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/mediapipe/media"
)

const (
	headerSize  = 44
	writeFrames = 4096
)

// header16 builds the canonical 44-byte header of a 16-bit PCM file holding
// frames sample frames.
func header16(sampleRate, channels, frames int) []byte {
	blockAlign := channels * 2
	dataSize := uint32(frames * blockAlign)

	h := make([]byte, headerSize)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], headerSize-8+dataSize)
	copy(h[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], formatPCM)
	binary.LittleEndian.PutUint16(h[22:], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], 16)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], dataSize)
	return h
}

// WriteWAV16 writes a 16-bit PCM WAV at sampleRate. samples are interleaved
// int16 PCM, channels values per frame.
// The whole length must be known up front, so w does not need to seek.
func WriteWAV16(w io.Writer, sampleRate, channels int, samples []int16) error {
	if channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedWavLayout, channels)
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrUnsupportedWavLayout, len(samples), channels)
	}

	if _, err := w.Write(header16(sampleRate, channels, len(samples)/channels)); err != nil {
		return fmt.Errorf("%w", err)
	}

	buf := make([]byte, 2*min(len(samples), writeFrames*channels))
	for len(samples) > 0 {
		n := min(len(samples), len(buf)/2)
		for i, s := range samples[:n] {
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
		}
		if _, err := w.Write(buf[:2*n]); err != nil {
			return fmt.Errorf("%w", err)
		}
		samples = samples[n:]
	}
	return nil
}

// WriteChunks16 writes chunks as one 16-bit PCM WAV without seeking w.
// Every chunk must share the rate and channel count of the first; the
// sample format may vary and is converted.
func WriteChunks16(w io.Writer, chunks []*media.PCMChunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks", ErrUnsupportedWavLayout)
	}

	first := chunks[0].Format
	frames := 0
	for _, c := range chunks {
		if c.Format.SampleRate != first.SampleRate || c.Format.Channels() != first.Channels() {
			return fmt.Errorf("%w: chunk is %s, file is %s", ErrUnsupportedWavLayout, c.Format, first)
		}
		frames += c.Samples
	}

	if _, err := w.Write(header16(first.SampleRate, first.Channels(), frames)); err != nil {
		return fmt.Errorf("%w", err)
	}

	s16 := media.AudioFormat{SampleFormat: media.SampleFormatS16, SampleRate: first.SampleRate, Layout: first.Layout}
	for _, c := range chunks {
		data := c.Planes[0][:c.Samples*s16.FrameSize()]
		if c.Format.SampleFormat != media.SampleFormatS16 {
			data = media.EncodeFloat32(s16, c.Float32s(), c.Samples)[0]
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("%w", err)
		}
	}
	return nil
}
