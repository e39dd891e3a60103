// SPDX-License-Identifier: EPL-2.0

package mediapipe

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/mediapipe/media"
	"github.com/ik5/mediapipe/pipeline"
)

// ResampleToMono16 decodes r, resamples it to targetRate and mixes it down
// to mono 16-bit PCM.
//
// Returns:
//   - []int16: Collected PCM samples as 16-bit signed integers
//   - int: The output sample rate (same as targetRate)
//   - error: Any error encountered while opening or decoding
//
// Example:
//
//	f, _ := os.Open("call.mp3")
//	pcm16, rate, err := mediapipe.ResampleToMono16(ctx, f, "call.mp3", 8000)
//	if err != nil {
//		panic(err)
//	}
//	// pcm16 now contains mono 16-bit PCM at 8kHz
func ResampleToMono16(ctx context.Context, r io.ReadSeeker, name string, targetRate int, opts ...pipeline.Option) ([]int16, int, error) {
	opts = append(opts,
		pipeline.WithSampleRate(targetRate),
		pipeline.WithLayout(media.LayoutMono),
		pipeline.WithSampleFormat(media.SampleFormatS16),
	)

	s, err := OpenReader(ctx, r, name, opts...)
	if err != nil {
		return nil, targetRate, fmt.Errorf("%w", err)
	}
	defer s.Close()

	// Pre-allocate from the stream duration when the container knows it.
	estimated := targetRate * 2
	if d, ok := s.Stream().DurationTime(); ok {
		estimated = int(media.DurationToPTS(d, media.SampleTimeBase(targetRate), media.RoundUp))
	}
	pcm16 := make([]int16, 0, estimated)

	for {
		c, err := s.NextChunk(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm16, targetRate, fmt.Errorf("%w", err)
		}

		plane := c.Planes[0]
		for i := range c.Samples {
			pcm16 = append(pcm16, int16(binary.LittleEndian.Uint16(plane[i*2:])))
		}
	}

	return pcm16, targetRate, nil
}
