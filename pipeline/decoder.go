// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

type DecoderState int

const (
	DecoderIdle DecoderState = iota
	DecoderAwaitingPacket
	DecoderDecoding
	DecoderFlushing
	DecoderExhausted
)

func (s DecoderState) String() string {
	switch s {
	case DecoderIdle:
		return "idle"
	case DecoderAwaitingPacket:
		return "awaiting_packet"
	case DecoderDecoding:
		return "decoding"
	case DecoderFlushing:
		return "flushing"
	case DecoderExhausted:
		return "exhausted"
	}
	return "unknown"
}

// FrameDecoder drives a codec's send/receive protocol for one stream.
type FrameDecoder struct {
	dec    codec.Decoder
	stream media.StreamDescriptor
	log    *slog.Logger

	state     DecoderState
	nextPTS   int64 // predicted PTS of the next frame
	corrupted int
	closed    bool
}

func NewFrameDecoder(stream media.StreamDescriptor, reg *codec.Registry, log *slog.Logger) (*FrameDecoder, error) {
	factory, ok := reg.Decoder(stream.CodecID)
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrUnsupportedFormat, stream.CodecID)
	}

	dec, err := factory(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrDecodeFailed, stream.CodecID, err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &FrameDecoder{
		dec:     dec,
		stream:  stream,
		log:     log.With("component", "decoder", "codec", stream.CodecID),
		nextPTS: media.NoPTS,
	}, nil
}

func (d *FrameDecoder) State() DecoderState { return d.state }

// Corrupted is the number of packets the codec rejected as invalid.
func (d *FrameDecoder) Corrupted() int { return d.corrupted }

// Feed submits one packet. A packet the codec reports as invalid is dropped
// and ErrCorrupt returned; the decoder stays usable.
func (d *FrameDecoder) Feed(pkt *media.Packet) error {
	switch {
	case d.closed:
		return ErrClosed
	case d.state == DecoderFlushing || d.state == DecoderExhausted:
		return fmt.Errorf("%w: decoder is %s", ErrDecodeRejected, d.state)
	}

	err := d.dec.SendPacket(pkt)
	switch {
	case err == nil:
		d.state = DecoderDecoding
		return nil
	case errors.Is(err, codec.ErrInvalidData):
		d.corrupted++
		d.log.Warn("dropping corrupt packet", "pts", pkt.PTS, "size", len(pkt.Data), "error", err)
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	case errors.Is(err, codec.ErrAgain), errors.Is(err, codec.ErrEOFSent):
		return fmt.Errorf("%w: %w", ErrDecodeRejected, err)
	}
	return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
}

// NextFrame returns a decoded frame, ErrNeedMorePackets when the codec
// wants input, or io.EOF once a drain has finished. Frames without a PTS
// continue from the end of the previous frame.
func (d *FrameDecoder) NextFrame() (*media.Frame, error) {
	switch {
	case d.closed:
		return nil, ErrClosed
	case d.state == DecoderExhausted:
		return nil, io.EOF
	}

	frame, err := d.dec.ReceiveFrame()
	switch {
	case err == nil:
	case errors.Is(err, codec.ErrAgain):
		if d.state == DecoderFlushing {
			return nil, fmt.Errorf("%w: codec wants input while draining", ErrDecodeFailed)
		}
		d.state = DecoderAwaitingPacket
		return nil, ErrNeedMorePackets
	case err == io.EOF:
		d.state = DecoderExhausted
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	if frame.PTS == media.NoPTS {
		frame.PTS = d.nextPTS
	}
	if frame.PTS != media.NoPTS {
		d.nextPTS = frame.PTS + frame.Duration(d.stream.TimeBase)
	}
	if d.state != DecoderFlushing {
		d.state = DecoderDecoding
	}
	return frame, nil
}

// FlushAndDrain signals end of input and hands every frame still buffered
// in the codec to fn. An error from fn stops the drain and is returned.
func (d *FrameDecoder) FlushAndDrain(fn func(*media.Frame) error) error {
	if d.closed {
		return ErrClosed
	}

	if d.state != DecoderFlushing && d.state != DecoderExhausted {
		if err := d.dec.SendPacket(nil); err != nil && !errors.Is(err, codec.ErrEOFSent) {
			return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
		}
		d.state = DecoderFlushing
		d.log.Debug("draining")
	}

	for {
		frame, err := d.NextFrame()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
}

// Reset discards codec state so decoding can restart after a seek.
func (d *FrameDecoder) Reset() {
	if d.closed {
		return
	}
	d.dec.Reset()
	d.state = DecoderIdle
	d.nextPTS = media.NoPTS
}

func (d *FrameDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.dec.Close()
}
