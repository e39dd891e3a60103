// SPDX-License-Identifier: EPL-2.0

// Package audio provides the sample-level processing used by the pipeline.
//
// This package contains two building blocks:
//   - Resampler, a codec.Resampler that converts sample format, channel
//     layout and sample rate in one pass
//   - Remixer, which maps interleaved frames between channel layouts
//
// # Resampling
//
// The Resampler is push based. Each Convert call consumes one frame and
// returns whatever output the frame made available:
//
//	r, _ := audio.NewResampler(in, out)
//	for frame := range frames {
//	    converted, err := r.Convert(frame)
//	    ...
//	}
//	tail, _ := r.Flush()
//
// Rate conversion uses cubic (Catmull-Rom) interpolation, which needs two
// input samples of lookahead. Those samples stay buffered until more input
// arrives or Flush is called; Delay reports how much input is held back so
// callers can line timestamps up. When downsampling, a one-pole low-pass
// filter runs before interpolation.
//
// When the input and output formats are identical the samples are copied
// through unchanged. When only the rate matches, frames are remixed and
// re-encoded without touching the timing.
//
// # Channel Mixing
//
// Down-mixing to mono averages all channels. Other layout changes use a gain
// matrix that folds missing positions into their neighbours at -3 dB.
//
// # Sample Format
//
// Internally samples are float32 in the range [-1.0, 1.0]. Conversion to and
// from the stored formats is done by the media package.
package audio
