// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

// ResampleStage converts decoded frames of any format into PCMChunks of one
// output format and keeps their timestamps in step with the resampler
// delay.
type ResampleStage struct {
	factory      codec.ResamplerFactory
	out          media.AudioFormat
	outTB        media.Rational
	streamTB     media.Rational
	chunkSamples int
	log          *slog.Logger

	rs      codec.Resampler
	in      media.AudioFormat
	nextPTS int64 // end of the last chunk in outTB
	closed  bool
}

// NewResampleStage returns a stage producing out from frames whose PTS is
// expressed in streamTB. The resampler is opened on the first frame or by
// Configure.
func NewResampleStage(factory codec.ResamplerFactory, out media.AudioFormat, streamTB media.Rational, chunkSamples int, log *slog.Logger) (*ResampleStage, error) {
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: output %w", ErrConfigMismatch, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &ResampleStage{
		factory:      factory,
		out:          out,
		outTB:        media.SampleTimeBase(out.SampleRate),
		streamTB:     streamTB,
		chunkSamples: max(1, chunkSamples),
		log:          log.With("component", "resampler"),
		nextPTS:      media.NoPTS,
	}, nil
}

func (s *ResampleStage) Output() media.AudioFormat { return s.out }

// Configure flushes the current resampler, returning its tail, and opens a
// new one from in to out.
func (s *ResampleStage) Configure(in, out media.AudioFormat) ([]*media.PCMChunk, error) {
	if s.closed {
		return nil, ErrClosed
	}

	chunks, err := s.Flush()
	if err != nil {
		return nil, err
	}
	if s.rs != nil {
		if err := s.rs.Close(); err != nil {
			s.log.Warn("closing replaced resampler", "error", err)
		}
		s.rs = nil
	}

	rs, err := s.factory(in, out)
	if err != nil {
		return chunks, fmt.Errorf("%w: %s to %s: %w", ErrConfigMismatch, in, out, err)
	}

	if s.out != out {
		s.out = out
		s.outTB = media.SampleTimeBase(out.SampleRate)
		s.nextPTS = media.NoPTS
	}
	s.rs, s.in = rs, in
	s.log.Debug("configured", "in", in.String(), "out", out.String())
	return chunks, nil
}

// Push converts one frame. The first output sample of the frame sits
// Delay() before the frame start, so the resampler is asked for its delay
// before the frame goes in.
func (s *ResampleStage) Push(frame *media.Frame) ([]*media.PCMChunk, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var chunks []*media.PCMChunk
	if s.rs == nil || frame.Format != s.in {
		tail, err := s.Configure(frame.Format, s.out)
		chunks = tail
		if err != nil {
			return chunks, err
		}
	}

	delay := s.rs.Delay(s.out.SampleRate)
	converted, err := s.rs.Convert(frame)
	if err != nil {
		return chunks, fmt.Errorf("%w: %w", ErrConfigMismatch, err)
	}

	pts := s.nextPTS
	if frame.PTS != media.NoPTS {
		pts = media.Rescale(frame.PTS, s.streamTB, s.outTB, media.RoundNearInf) - delay
		if s.nextPTS != media.NoPTS && pts < s.nextPTS {
			pts = s.nextPTS
		}
	}

	return append(chunks, s.split(converted, pts)...), nil
}

// Flush emits the samples still held in the resampler delay line.
func (s *ResampleStage) Flush() ([]*media.PCMChunk, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.rs == nil {
		return nil, nil
	}

	tail, err := s.rs.Flush()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigMismatch, err)
	}
	return s.split(tail, s.nextPTS), nil
}

// split cuts f into chunks of at most chunkSamples starting at pts.
func (s *ResampleStage) split(f *media.Frame, pts int64) []*media.PCMChunk {
	if f == nil || f.Samples == 0 {
		return nil
	}
	if pts == media.NoPTS {
		pts = 0
	}

	bytesPerSample := f.Format.SampleFormat.BytesPerSample()
	if !f.Format.SampleFormat.IsPlanar() {
		bytesPerSample *= f.Format.Channels()
	}

	chunks := make([]*media.PCMChunk, 0, (f.Samples+s.chunkSamples-1)/s.chunkSamples)
	for start := 0; start < f.Samples; start += s.chunkSamples {
		n := min(s.chunkSamples, f.Samples-start)

		planes := make([][]byte, len(f.Planes))
		for i, p := range f.Planes {
			lo, hi := start*bytesPerSample, (start+n)*bytesPerSample
			planes[i] = p[lo:hi:hi]
		}

		chunks = append(chunks, &media.PCMChunk{
			Format:   f.Format,
			Samples:  n,
			Planes:   planes,
			PTS:      pts,
			TimeBase: s.outTB,
		})
		pts += int64(n)
	}

	s.nextPTS = pts
	return chunks
}

// Reset drops everything buffered in the resampler and forgets the PTS
// cursor.
func (s *ResampleStage) Reset() {
	if s.closed || s.rs == nil {
		s.nextPTS = media.NoPTS
		return
	}
	if _, err := s.rs.Flush(); err != nil {
		s.log.Warn("discarding resampler state", "error", err)
	}
	s.nextPTS = media.NoPTS
}

func (s *ResampleStage) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.rs == nil {
		return nil
	}
	return s.rs.Close()
}
