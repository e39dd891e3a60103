// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
	"github.com/jfreymuth/vorbis"
)

// vorbisDecoder is an interface for vorbis.Decoder to allow testing
type vorbisDecoder interface {
	ReadHeader(header []byte) error
	Decode(packet []byte) ([]float32, error)
	Channels() int
	Clear()
}

// channelOrder maps our channel order (ascending layout bit) onto the
// order Vorbis stores channels in: out[i] = in[channelOrder[n][i]].
var channelOrder = map[int][]int{
	3: {0, 2, 1},
	5: {0, 2, 1, 3, 4},
	6: {0, 2, 1, 5, 3, 4},
	7: {0, 2, 1, 6, 5, 3, 4},
	8: {0, 2, 1, 7, 5, 6, 3, 4},
}

// Decoder turns Vorbis packets into interleaved float32 frames.
//
// A Vorbis packet does not carry its own position: the Ogg granule on the
// last packet of a page tells where that page ends. Decoded frames are held
// until such an anchor arrives so each one can be given an exact PTS, which
// means several packets may go in before the first frame comes out.
type Decoder struct {
	dec    vorbisDecoder
	format media.AudioFormat
	order  []int

	pending  []*media.Frame // decoded, waiting for an anchor
	buffered int            // samples in pending
	ready    []*media.Frame
	next     int64 // PTS of the sample after the last anchored one
	draining bool
	scratch  []float32
}

// NewDecoder reads the three header packets from stream.Extradata.
func NewDecoder(stream media.StreamDescriptor) (codec.Decoder, error) {
	return newDecoder(&vorbis.Decoder{}, stream)
}

func newDecoder(dec vorbisDecoder, stream media.StreamDescriptor) (*Decoder, error) {
	if len(stream.Extradata) < headerPackets {
		return nil, ErrMissingHeaders
	}
	for i, h := range stream.Extradata[:headerPackets] {
		if err := dec.ReadHeader(h); err != nil {
			return nil, fmt.Errorf("reading vorbis header %d: %w", i, err)
		}
	}

	channels := dec.Channels()
	if channels != stream.Layout.Channels() {
		return nil, fmt.Errorf("%w: headers say %d, stream says %d", ErrUnsupportedChannels, channels, stream.Layout.Channels())
	}
	if channels > 8 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, channels)
	}

	return &Decoder{
		dec: dec,
		format: media.AudioFormat{
			SampleFormat: media.SampleFormatF32,
			SampleRate:   stream.SampleRate,
			Layout:       stream.Layout,
		},
		order: channelOrder[channels],
		next:  media.NoPTS,
	}, nil
}

func (d *Decoder) SendPacket(pkt *media.Packet) error {
	if d.draining {
		return codec.ErrEOFSent
	}
	if pkt == nil {
		d.draining = true
		return nil
	}
	if len(d.ready) > 0 {
		return codec.ErrAgain
	}

	samples, err := d.dec.Decode(pkt.Data)
	if err != nil {
		return fmt.Errorf("%w: %w", codec.ErrInvalidData, err)
	}

	channels := d.format.Channels()
	if n := len(samples) / channels; n > 0 {
		frame := &media.Frame{
			Format:  d.format,
			PTS:     media.NoPTS,
			Samples: n,
			Planes:  media.EncodeFloat32(d.format, d.reorder(samples[:n*channels]), n),
		}
		d.pending = append(d.pending, frame)
		d.buffered += n
	}

	if pkt.EndPTS != media.NoPTS {
		d.anchor(pkt.EndPTS)
	}
	return nil
}

func (d *Decoder) reorder(samples []float32) []float32 {
	if d.order == nil {
		return samples
	}
	channels := len(d.order)
	d.scratch = append(d.scratch[:0], samples...)
	for i := 0; i < len(samples); i += channels {
		for c, src := range d.order {
			samples[i+c] = d.scratch[i+src]
		}
	}
	return samples
}

// anchor assigns PTS to the pending frames given end, the position of the
// sample right after them. When that would overlap what was already output
// (the last page of a stream ends early) the surplus is cut from the tail.
// Samples that would land before zero (encoder priming) are cut from the
// front.
func (d *Decoder) anchor(end int64) {
	start := end - int64(d.buffered)
	if d.next != media.NoPTS && start < d.next {
		start = d.next
	}
	keep := max(0, end-start)

	pts := start
	for _, f := range d.pending {
		if pts < 0 {
			f.PTS = pts
			f.TrimFront(int(min(-pts, int64(f.Samples))), d.sampleTB())
			pts = f.PTS
			if f.Samples == 0 {
				continue
			}
		}
		if pts-start+int64(f.Samples) > keep {
			f.Samples = int(max(0, keep-(pts-start)))
			d.truncate(f)
		}
		if f.Samples == 0 {
			continue
		}
		f.PTS = pts
		pts += int64(f.Samples)
		d.ready = append(d.ready, f)
	}

	d.next = max(end, 0)
	d.pending = d.pending[:0]
	d.buffered = 0
}

func (d *Decoder) truncate(f *media.Frame) {
	size := f.Samples * f.Format.FrameSize()
	f.Planes[0] = f.Planes[0][:size]
}

func (d *Decoder) sampleTB() media.Rational { return media.SampleTimeBase(d.format.SampleRate) }

func (d *Decoder) ReceiveFrame() (*media.Frame, error) {
	if len(d.ready) == 0 && d.draining && len(d.pending) > 0 {
		// No anchor left: continue from the last known position.
		for _, f := range d.pending {
			f.PTS = d.next
			if d.next != media.NoPTS {
				d.next += int64(f.Samples)
			}
			d.ready = append(d.ready, f)
		}
		d.pending = d.pending[:0]
		d.buffered = 0
	}

	if len(d.ready) == 0 {
		if d.draining {
			return nil, io.EOF
		}
		return nil, codec.ErrAgain
	}

	f := d.ready[0]
	d.ready[0] = nil
	d.ready = d.ready[1:]
	return f, nil
}

// Reset forgets the decoder state and the stream position; the next
// anchor establishes it again.
func (d *Decoder) Reset() {
	d.dec.Clear()
	d.pending = nil
	d.ready = nil
	d.buffered = 0
	d.next = media.NoPTS
	d.draining = false
}

func (d *Decoder) Close() error {
	d.Reset()
	return nil
}
