// SPDX-License-Identifier: EPL-2.0

package mediapipe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/mediapipe/formats/wav"
	"github.com/ik5/mediapipe/pipeline"
)

// wavFile builds a 16-bit WAV of frames sample frames, each channel
// holding gen(i).
func wavFile(t testing.TB, rate, channels, frames int, gen func(i int) float64) *bytes.Reader {
	t.Helper()

	samples := make([]int16, frames*channels)
	for i := range frames {
		v := int16(gen(i) * 32767)
		for c := range channels {
			samples[i*channels+c] = v
		}
	}

	buf := new(bytes.Buffer)
	if err := wav.WriteWAV16(buf, rate, channels, samples); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func sine(rate int, freq float64) func(int) float64 {
	return func(i int) float64 { return 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)) }
}

func TestResampleToMono16_Basic(t *testing.T) {
	t.Parallel()

	// 1 second of stereo audio at 44.1kHz
	src := wavFile(t, 44100, 2, 44100, sine(44100, 440))

	pcm16, rate, err := ResampleToMono16(context.Background(), src, "tone.wav", 8000)
	if err != nil {
		t.Fatalf("ResampleToMono16() error = %v", err)
	}
	if rate != 8000 {
		t.Errorf("ResampleToMono16() rate = %d, want 8000", rate)
	}

	expected := 8000
	tolerance := 2
	if len(pcm16) < expected-tolerance || len(pcm16) > expected+tolerance {
		t.Errorf("ResampleToMono16() got %d samples, want ≈%d (±%d)", len(pcm16), expected, tolerance)
	}

	var peak int16
	for _, s := range pcm16 {
		peak = max(peak, s)
	}
	if peak < 20000 {
		t.Errorf("peak = %d, tone lost in resampling", peak)
	}
}

func TestResampleToMono16_AlreadyMono(t *testing.T) {
	t.Parallel()

	src := wavFile(t, 16000, 1, 16000, func(int) float64 { return 0.5 })

	pcm16, _, err := ResampleToMono16(context.Background(), src, "", 8000)
	if err != nil {
		t.Fatalf("ResampleToMono16() error = %v", err)
	}

	if len(pcm16) < 7998 || len(pcm16) > 8002 {
		t.Errorf("ResampleToMono16() got %d samples, want ≈8000", len(pcm16))
	}

	// With constant 0.5 input, all samples should be around 16383 (0.5 * 32767)
	for i, s := range pcm16 {
		if math.Abs(float64(s)-16383) > 100 {
			t.Errorf("pcm16[%d] = %d, want ≈16383", i, s)
			break
		}
	}
}

func TestResampleToMono16_Silence(t *testing.T) {
	t.Parallel()

	src := wavFile(t, 44100, 2, 44100, func(int) float64 { return 0 })

	pcm16, _, err := ResampleToMono16(context.Background(), src, "", 8000)
	if err != nil {
		t.Fatalf("ResampleToMono16() error = %v", err)
	}
	for i, s := range pcm16 {
		if s != 0 {
			t.Errorf("pcm16[%d] = %d, want 0 (silence)", i, s)
			break
		}
	}
}

func TestResampleToMono16_SameRate(t *testing.T) {
	t.Parallel()

	samples := []int16{100, -100, 200, -200, 300, -300}
	buf := new(bytes.Buffer)
	if err := wav.WriteWAV16(buf, 8000, 1, samples); err != nil {
		t.Fatal(err)
	}

	pcm16, _, err := ResampleToMono16(context.Background(), bytes.NewReader(buf.Bytes()), "", 8000)
	if err != nil {
		t.Fatalf("ResampleToMono16() error = %v", err)
	}
	if len(pcm16) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(pcm16), len(samples))
	}
	for i := range samples {
		if pcm16[i] != samples[i] {
			t.Errorf("pcm16[%d] = %d, want %d", i, pcm16[i], samples[i])
		}
	}
}

func TestResampleToMono16_NotAudio(t *testing.T) {
	t.Parallel()

	_, _, err := ResampleToMono16(context.Background(), bytes.NewReader([]byte("not an audio file")), "notes.txt", 8000)
	if !errors.Is(err, pipeline.ErrUnsupportedFormat) {
		t.Errorf("ResampleToMono16() error = %v, want ErrUnsupportedFormat", err)
	}
}

func BenchmarkResampleToMono16(b *testing.B) {
	src := wavFile(b, 44100, 2, 44100, sine(44100, 440))

	b.ReportAllocs()

	for b.Loop() {
		src.Seek(0, io.SeekStart)
		if _, _, err := ResampleToMono16(context.Background(), src, "", 8000); err != nil {
			b.Fatal(err)
		}
	}
}
