// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"math"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
	"github.com/ik5/mediapipe/utils"
)

// Resampler converts frames between audio formats using cubic
// interpolation. Works on whole frames pushed by the caller; remixes
// channels before changing the rate.
// Includes basic anti-aliasing filtering when downsampling.
type Resampler struct {
	in, out media.AudioFormat
	ratio   float64 // inRate / outRate - how many input samples per output sample

	remix    *Remixer
	channels int // output channel count, the width of every history frame

	// Rates match: no history, frames are remixed and re-encoded as they come.
	passthrough bool

	// Interleaved input history after remixing and filtering. An output at
	// position t needs the frames floor(t)-1 .. floor(t)+2.
	hist []float32
	// Position of the next output sample, in history frames.
	pos float64

	// Scratch buffers reused across Convert calls
	decoded []float32
	mixed   []float32
	outBuf  []float32

	// Simple low-pass filter state for anti-aliasing (when downsampling)
	filterState  []float32
	filterPrimed bool
	useFilter    bool
	filterAlpha  float32

	closed bool
}

// NewResampler opens a resampler from in to out. It satisfies
// codec.ResamplerFactory.
func NewResampler(in, out media.AudioFormat) (codec.Resampler, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: input: %w", ErrUnsupportedFormat, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: output: %w", ErrUnsupportedFormat, err)
	}

	remix, err := NewRemixer(in.Layout, out.Layout)
	if err != nil {
		return nil, err
	}

	ratio := float64(in.SampleRate) / float64(out.SampleRate)

	// Enable simple low-pass filter when downsampling
	useFilter := ratio > 1.0
	var filterAlpha float32
	if useFilter {
		// Simple one-pole low-pass filter
		filterAlpha = 0.5
	}

	return &Resampler{
		in:          in,
		out:         out,
		ratio:       ratio,
		remix:       remix,
		channels:    out.Channels(),
		passthrough: in.SampleRate == out.SampleRate,
		useFilter:   useFilter,
		filterAlpha: filterAlpha,
		filterState: make([]float32, out.Channels()),
	}, nil
}

func (r *Resampler) histFrames() int { return len(r.hist) / r.channels }

// Convert consumes frame and returns the output samples it made available.
func (r *Resampler) Convert(frame *media.Frame) (*media.Frame, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if frame.Format != r.in {
		return nil, fmt.Errorf("%w: got %s, configured for %s", ErrFormatMismatch, frame.Format, r.in)
	}
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	// Nothing to convert: hand the samples through untouched.
	if r.in == r.out {
		out := media.NewFrame(r.out, frame.Samples)
		for i := range out.Planes {
			copy(out.Planes[i], frame.Planes[i])
		}
		return out, nil
	}

	mixed, err := r.decodeAndMix(frame)
	if err != nil {
		return nil, err
	}

	if r.passthrough {
		return r.emit(mixed, frame.Samples), nil
	}

	if r.useFilter {
		r.lowpass(mixed, frame.Samples)
	}
	r.hist = append(r.hist, mixed...)

	n := r.interpolate(false)
	r.compact()

	return r.emit(r.outBuf, n), nil
}

func (r *Resampler) decodeAndMix(frame *media.Frame) ([]float32, error) {
	r.decoded = grow(r.decoded, frame.Samples*r.in.Channels())
	media.DecodeFloat32(frame.Format, frame.Planes, frame.Samples, r.decoded)

	r.mixed = grow(r.mixed, frame.Samples*r.channels)
	if err := r.remix.Mix(r.mixed, r.decoded, frame.Samples); err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return r.mixed, nil
}

func (r *Resampler) lowpass(buf []float32, frames int) {
	if !r.filterPrimed && frames > 0 {
		// Initialize filter state with first sample to avoid warm-up transients
		copy(r.filterState, buf[:r.channels])
		r.filterPrimed = true
	}
	for f := range frames {
		for c := range r.channels {
			// One-pole low-pass: y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			i := f*r.channels + c
			buf[i] = r.filterAlpha*buf[i] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = buf[i]
		}
	}
}

// interpolate writes every output sample the history can support into
// outBuf. While flushing, frames past the end of the history are taken to
// repeat the last one.
func (r *Resampler) interpolate(flushing bool) int {
	frames := r.histFrames()
	if frames == 0 {
		return 0
	}

	// Size the output for the worst case, rounding up.
	capacity := media.RescaleRnd(int64(frames)+1, int64(r.out.SampleRate), int64(r.in.SampleRate), media.RoundUp)
	r.outBuf = grow(r.outBuf, int(capacity)*r.channels)

	written := 0
	for {
		base := int(math.Floor(r.pos))
		if flushing {
			if base >= frames {
				break
			}
		} else if base+2 >= frames {
			break
		}
		if (written+1)*r.channels > len(r.outBuf) {
			r.outBuf = append(r.outBuf, make([]float32, r.channels)...)
		}

		utils.CubicInterpolateFrame(
			r.outBuf[written*r.channels:(written+1)*r.channels],
			r.frameAt(base-1, frames),
			r.frameAt(base, frames),
			r.frameAt(base+1, frames),
			r.frameAt(base+2, frames),
			float32(r.pos-float64(base)),
		)

		written++
		r.pos += r.ratio
	}
	return written
}

// frameAt returns history frame i, duplicating the edge frames when i is
// out of range.
func (r *Resampler) frameAt(i, frames int) []float32 {
	i = max(0, min(i, frames-1))
	return r.hist[i*r.channels : (i+1)*r.channels]
}

// compact drops history frames no future output can reach.
func (r *Resampler) compact() {
	drop := int(math.Floor(r.pos)) - 1
	if drop <= 0 {
		return
	}
	drop = min(drop, r.histFrames())
	n := copy(r.hist, r.hist[drop*r.channels:])
	r.hist = r.hist[:n]
	r.pos -= float64(drop)
}

func (r *Resampler) emit(buf []float32, samples int) *media.Frame {
	return &media.Frame{
		Format:  r.out,
		PTS:     media.NoPTS,
		Samples: samples,
		Planes:  media.EncodeFloat32(r.out, buf[:samples*r.channels], samples),
	}
}

// Flush returns the tail still held in the history and starts over.
func (r *Resampler) Flush() (*media.Frame, error) {
	if r.closed {
		return nil, ErrClosed
	}

	n := 0
	if !r.passthrough && r.in != r.out {
		n = r.interpolate(true)
	}
	out := r.emit(r.outBuf, n)

	r.hist = r.hist[:0]
	r.pos = 0
	r.filterPrimed = false
	clear(r.filterState)

	return out, nil
}

// Delay reports the input buffered but not yet output, in 1/base seconds.
func (r *Resampler) Delay(base int) int64 {
	if r.passthrough || r.in == r.out {
		return 0
	}
	pending := float64(r.histFrames()) - r.pos
	if pending <= 0 {
		return 0
	}
	return int64(math.Round(pending * float64(base) / float64(r.in.SampleRate)))
}

func (r *Resampler) Close() error {
	r.closed = true
	r.hist = nil
	r.decoded = nil
	r.mixed = nil
	r.outBuf = nil
	return nil
}

// grow returns buf resized to n, reallocating only when it is too small.
func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}
