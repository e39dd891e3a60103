// SPDX-License-Identifier: EPL-2.0

package pipeline_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ik5/mediapipe/audio"
	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/internal/mediatest"
	"github.com/ik5/mediapipe/pipeline"
)

func Example() {
	reg := codec.NewRegistry()
	reg.RegisterFormat(mediatest.NewFormat(mediatest.Config{SampleRate: 48000, Frames: 48000}))
	mediatest.Register(reg, 0)
	reg.SetResampler(audio.NewResampler)

	ctx := context.Background()
	s, err := pipeline.OpenReader(ctx, bytes.NewReader([]byte(mediatest.Magic)), "tone.mtst",
		pipeline.WithRegistry(reg),
		pipeline.WithSampleRate(16000),
		pipeline.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer s.Close()

	if err := s.Seek(ctx, 500*time.Millisecond); err != nil {
		fmt.Println(err)
		return
	}

	first, err := s.NextChunk(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("first chunk at %v, discontinuity %v\n", first.Time(), first.Discontinuity)

	samples := first.Samples
	for {
		c, err := s.NextChunk(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Println(err)
			return
		}
		samples += c.Samples
	}
	fmt.Println("output format:", s.OutputFormat())
	fmt.Println("state:", s.State())
	fmt.Println("about half a second:", samples > 7990 && samples < 8010)

	// Output:
	// first chunk at 500ms, discontinuity true
	// output format: s16 16000Hz stereo
	// state: ended
	// about half a second: true
}
