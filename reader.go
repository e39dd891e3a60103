// SPDX-License-Identifier: EPL-2.0

package mediapipe

import (
	"context"
	"io"
	"time"

	"github.com/ik5/mediapipe/pipeline"
)

// Reader hands out the samples of a session as interleaved float32 in
// buffers of any size, keeping what is left of a chunk for the next call.
type Reader struct {
	s       *pipeline.Session
	pending []float32
}

func NewReader(s *pipeline.Session) *Reader {
	return &Reader{s: s}
}

func (r *Reader) SampleRate() int { return r.s.OutputFormat().SampleRate }
func (r *Reader) Channels() int   { return r.s.OutputFormat().Channels() }

// ReadSamples fills buf with interleaved samples. It returns io.EOF only
// when no sample was read.
func (r *Reader) ReadSamples(ctx context.Context, buf []float32) (int, error) {
	n := 0
	for n < len(buf) {
		if len(r.pending) == 0 {
			c, err := r.s.NextChunk(ctx)
			if err == io.EOF && n > 0 {
				return n, nil
			}
			if err != nil {
				return n, err
			}
			r.pending = c.Float32s()
		}

		k := copy(buf[n:], r.pending)
		r.pending = r.pending[k:]
		n += k
	}
	return n, nil
}

// Fetch reads up to frames sample frames. The result is shorter only at
// the end of the stream.
func (r *Reader) Fetch(ctx context.Context, frames int) ([]float32, error) {
	buf := make([]float32, frames*r.Channels())

	n := 0
	for n < len(buf) {
		k, err := r.ReadSamples(ctx, buf[n:])
		n += k
		if err == io.EOF {
			break
		}
		if err != nil {
			return buf[:n], err
		}
	}
	if n == 0 && frames > 0 {
		return nil, io.EOF
	}
	return buf[:n], nil
}

// Seek drops the buffered samples and seeks the session.
func (r *Reader) Seek(ctx context.Context, target time.Duration) error {
	if err := r.s.Seek(ctx, target); err != nil {
		return err
	}
	r.pending = nil
	return nil
}
