// SPDX-License-Identifier: EPL-2.0

// Package codec defines the boundary between the pipeline and the media
// libraries that do the actual work.
//
// A Format recognises a container and opens a Demuxer over it. A Demuxer
// lists its streams and hands out packets. A Decoder turns packets into
// frames using a two-phase protocol:
//
//	if err := dec.SendPacket(pkt); err != nil { ... }
//	for {
//	    frame, err := dec.ReceiveFrame()
//	    if errors.Is(err, codec.ErrAgain) {
//	        break // feed another packet
//	    }
//	    if err == io.EOF {
//	        break // drained after SendPacket(nil)
//	    }
//	    ...
//	}
//
// Sending a nil packet is the drain signal: the decoder releases every frame
// it still holds and then reports io.EOF until Reset is called.
//
// A Resampler converts frames between audio formats and reports its internal
// delay so callers can keep timestamps aligned.
//
// Backends register themselves in a Registry, which the pipeline consults to
// probe inputs and look up decoders by codec id.
package codec
