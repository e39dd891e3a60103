// SPDX-License-Identifier: EPL-2.0

// Package mediapipe decodes audio files into PCM of a chosen format, pulled
// on demand.
//
// It wires every built-in container and codec (WAV, AIFF, Ogg Vorbis, MP3)
// and the cubic resampler into a pipeline.Session.
//
// # Quick Start
//
// The simplest way to get telephony-grade samples out of a file is
// ResampleToMono16:
//
//	f, _ := os.Open("audio.wav")
//	samples, rate, err := mediapipe.ResampleToMono16(ctx, f, "audio.wav", 8000)
//
//	// samples is now []int16 at 8kHz mono
//
// # Sessions
//
// For streaming, seeking or a different output format, open a session:
//
//	s, err := mediapipe.Open(ctx, "song.ogg",
//		pipeline.WithSampleRate(48000),
//		pipeline.WithSampleFormat(media.SampleFormatF32),
//	)
//	defer s.Close()
//
//	s.Seek(ctx, 30*time.Second)
//	for {
//		chunk, err := s.NextChunk(ctx)
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// Reader wraps a session for callers that want interleaved float32 samples
// in buffers of their own size.
//
// # Writing WAV Files
//
// formats/wav writes PCM chunks back out:
//
//	w, _ := wav.NewWriter(out, s.OutputFormat())
//	w.WriteChunk(chunk)
//	w.Close()
//
// See the individual subpackages for more detailed documentation.
package mediapipe
