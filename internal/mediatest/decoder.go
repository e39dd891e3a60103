// SPDX-License-Identifier: EPL-2.0

package mediatest

import (
	"io"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/formats/pcm"
	"github.com/ik5/mediapipe/media"
)

// DelayedDecoder decodes s16le packets like the PCM codec but keeps the
// last Delay frames inside, the way codecs with reference frames do. They
// only come out when more input arrives or on a drain.
type DelayedDecoder struct {
	inner    codec.Decoder
	delay    int
	held     []*media.Frame
	draining bool
	resets   int
}

// Register adds the PCM codecs and CodecDelayed with the given delay to reg.
func Register(reg *codec.Registry, delay int) {
	pcm.Register(reg)
	reg.RegisterDecoder(CodecDelayed, func(stream media.StreamDescriptor) (codec.Decoder, error) {
		return NewDelayedDecoder(stream, delay)
	})
}

func NewDelayedDecoder(stream media.StreamDescriptor, delay int) (*DelayedDecoder, error) {
	stream.CodecID = codec.CodecPCMS16LE
	inner, err := pcm.NewDecoder(stream)
	if err != nil {
		return nil, err
	}
	return &DelayedDecoder{inner: inner, delay: delay}, nil
}

func (d *DelayedDecoder) SendPacket(pkt *media.Packet) error {
	if d.draining {
		return codec.ErrEOFSent
	}
	if pkt == nil {
		d.draining = true
		return nil
	}
	if len(d.held) > d.delay {
		return codec.ErrAgain
	}

	if err := d.inner.SendPacket(pkt); err != nil {
		return err
	}
	frame, err := d.inner.ReceiveFrame()
	if err != nil {
		return err
	}
	d.held = append(d.held, frame)
	return nil
}

func (d *DelayedDecoder) ReceiveFrame() (*media.Frame, error) {
	if len(d.held) > d.delay || (d.draining && len(d.held) > 0) {
		f := d.held[0]
		d.held = d.held[1:]
		return f, nil
	}
	if d.draining {
		return nil, io.EOF
	}
	return nil, codec.ErrAgain
}

func (d *DelayedDecoder) Reset() {
	d.inner.Reset()
	d.held = nil
	d.draining = false
	d.resets++
}

// Resets counts Reset calls.
func (d *DelayedDecoder) Resets() int { return d.resets }

func (d *DelayedDecoder) Close() error {
	d.held = nil
	return d.inner.Close()
}
