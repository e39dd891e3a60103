// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"testing"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

// waveform generates the value of one sample of one channel.
type waveform func(sample int, channel int) float32

func silence(int, int) float32 { return 0 }

func constant(value float32) waveform {
	return func(int, int) float32 { return value }
}

func sine(sampleRate int, frequency float64) waveform {
	return func(sample int, _ int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	}
}

// makeFrame builds a frame of samples samples starting at sample offset.
func makeFrame(format media.AudioFormat, offset, samples int, wave waveform) *media.Frame {
	channels := format.Channels()
	buf := make([]float32, samples*channels)
	for f := range samples {
		for c := range channels {
			buf[f*channels+c] = wave(offset+f, c)
		}
	}
	return &media.Frame{
		Format:  format,
		PTS:     int64(offset),
		Samples: samples,
		Planes:  media.EncodeFloat32(format, buf, samples),
	}
}

// run pushes total samples through r in frames of frameSize and flushes.
// It returns the interleaved output.
func run(tb testing.TB, r codec.Resampler, in media.AudioFormat, total, frameSize int, wave waveform) []float32 {
	tb.Helper()

	var out []float32
	collect := func(f *media.Frame) {
		out = append(out, (&media.PCMChunk{Format: f.Format, Samples: f.Samples, Planes: f.Planes}).Float32s()...)
	}

	for offset := 0; offset < total; offset += frameSize {
		n := min(frameSize, total-offset)
		f, err := r.Convert(makeFrame(in, offset, n, wave))
		if err != nil {
			tb.Fatalf("Convert() error = %v", err)
		}
		collect(f)
	}

	f, err := r.Flush()
	if err != nil {
		tb.Fatalf("Flush() error = %v", err)
	}
	collect(f)

	return out
}

func mustResampler(tb testing.TB, in, out media.AudioFormat) codec.Resampler {
	tb.Helper()

	r, err := NewResampler(in, out)
	if err != nil {
		tb.Fatalf("NewResampler() error = %v", err)
	}
	return r
}

func mono(sf media.SampleFormat, rate int) media.AudioFormat {
	return media.AudioFormat{SampleFormat: sf, SampleRate: rate, Layout: media.LayoutMono}
}

func stereo(sf media.SampleFormat, rate int) media.AudioFormat {
	return media.AudioFormat{SampleFormat: sf, SampleRate: rate, Layout: media.LayoutStereo}
}
