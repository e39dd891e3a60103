// SPDX-License-Identifier: EPL-2.0

/*
Package pipeline turns the packets of one audio stream into PCM chunks of a
fixed format, pulled on demand.

A Session owns three stages:

  - PacketSource reads the selected stream from a codec.Demuxer, optionally
    on a prefetch goroutine;
  - FrameDecoder drives a codec.Decoder through its send/receive protocol;
  - ResampleStage converts frames of whatever format the codec produces and
    keeps chunk timestamps in step with the resampler delay.

Every chunk carries a PTS in 1/output-rate units. Timestamps never go
backwards except on the first chunk after a Seek, which has Discontinuity
set. Seek is sample accurate: the container lands on a random access point
at or before the target and the frames before the target are trimmed.

At the end of the packets the decoder is drained and the resampler flushed
before NextChunk reports io.EOF, so no trailing audio is lost.

Corrupt packets are skipped. Decoder and resampler failures are terminal:
the session releases its resources and keeps returning the same error.
*/
package pipeline
