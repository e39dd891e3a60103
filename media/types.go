// SPDX-License-Identifier: EPL-2.0

package media

import (
	"fmt"
	"time"
)

// StreamDescriptor describes one elementary stream of a container. It does
// not change once the stream has been selected.
type StreamDescriptor struct {
	Index        int
	Type         MediaType
	CodecID      string
	TimeBase     Rational
	SampleFormat SampleFormat
	SampleRate   int
	Layout       ChannelLayout
	// Duration in TimeBase units, NoPTS when the container does not say.
	Duration int64
	// Extradata carries codec setup packets (Vorbis headers, for example).
	Extradata [][]byte
	Metadata  Metadata
}

// AudioFormat returns the native format frames of this stream decode to.
func (s StreamDescriptor) AudioFormat() AudioFormat {
	return AudioFormat{SampleFormat: s.SampleFormat, SampleRate: s.SampleRate, Layout: s.Layout}
}

// DurationTime converts Duration to a time.Duration.
func (s StreamDescriptor) DurationTime() (time.Duration, bool) {
	if s.Duration == NoPTS || !s.TimeBase.Valid() {
		return 0, false
	}
	return PTSToDuration(s.Duration, s.TimeBase), true
}

func (s StreamDescriptor) String() string {
	return fmt.Sprintf("#%d %s %s %dHz %s tb=%s", s.Index, s.Type, s.CodecID, s.SampleRate, s.Layout, s.TimeBase)
}

// Packet is one compressed unit read from a container.
type Packet struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	// Duration in the stream time base, 0 when unknown.
	Duration int64
	// EndPTS is the position right after this packet's decoded samples when
	// the container records it (Ogg granule positions), NoPTS otherwise.
	EndPTS int64
	Data   []byte
}

// NewPacket returns a packet with every timestamp unknown.
func NewPacket(stream int, data []byte) *Packet {
	return &Packet{StreamIndex: stream, PTS: NoPTS, DTS: NoPTS, EndPTS: NoPTS, Data: data}
}

// Frame is one decoded audio unit. Planes holds one buffer when the sample
// format is interleaved and one per channel when it is planar.
type Frame struct {
	Format  AudioFormat
	PTS     int64
	Samples int
	Planes  [][]byte
}

// NewFrame allocates zeroed planes for samples samples of format.
func NewFrame(format AudioFormat, samples int) *Frame {
	planes := make([][]byte, format.Planes())
	size := samples * format.SampleFormat.BytesPerSample()
	if !format.SampleFormat.IsPlanar() {
		size *= format.Channels()
	}
	for i := range planes {
		planes[i] = make([]byte, size)
	}
	return &Frame{Format: format, PTS: NoPTS, Samples: samples, Planes: planes}
}

// Validate checks that the planes are large enough for Samples.
func (f *Frame) Validate() error {
	if err := f.Format.Validate(); err != nil {
		return err
	}
	if len(f.Planes) != f.Format.Planes() {
		return fmt.Errorf("%w: %d planes, want %d", ErrShortBuffer, len(f.Planes), f.Format.Planes())
	}
	need := f.planeSize(f.Samples)
	for i, p := range f.Planes {
		if len(p) < need {
			return fmt.Errorf("%w: plane %d has %d bytes, want %d", ErrShortBuffer, i, len(p), need)
		}
	}
	return nil
}

func (f *Frame) planeSize(samples int) int {
	size := samples * f.Format.SampleFormat.BytesPerSample()
	if !f.Format.SampleFormat.IsPlanar() {
		size *= f.Format.Channels()
	}
	return size
}

// Duration returns the frame length expressed in tb.
func (f *Frame) Duration(tb Rational) int64 {
	return Rescale(int64(f.Samples), SampleTimeBase(f.Format.SampleRate), tb, RoundNearInf)
}

// TrimFront drops the first n samples of every channel in place. The PTS is
// moved forward by the trimmed amount when it is known; tb is the time base
// the PTS is expressed in.
func (f *Frame) TrimFront(n int, tb Rational) {
	if n <= 0 {
		return
	}
	if n > f.Samples {
		n = f.Samples
	}
	cut := f.planeSize(n)
	for i := range f.Planes {
		f.Planes[i] = f.Planes[i][cut:]
	}
	f.Samples -= n
	if f.PTS != NoPTS {
		f.PTS += Rescale(int64(n), SampleTimeBase(f.Format.SampleRate), tb, RoundNearInf)
	}
}

// PCMChunk is one buffer of output audio in the pipeline's fixed format.
// The caller owns it once it has been returned.
type PCMChunk struct {
	Format  AudioFormat
	Samples int
	Planes  [][]byte
	// PTS in TimeBase, which is one sample at the output rate.
	PTS      int64
	TimeBase Rational
	// Discontinuity is set on the first chunk delivered after a seek.
	Discontinuity bool
}

// Time returns the chunk PTS as a time.Duration.
func (c *PCMChunk) Time() time.Duration {
	return PTSToDuration(c.PTS, c.TimeBase)
}

// End returns the PTS right after the last sample of the chunk.
func (c *PCMChunk) End() int64 {
	if c.PTS == NoPTS {
		return NoPTS
	}
	return c.PTS + Rescale(int64(c.Samples), SampleTimeBase(c.Format.SampleRate), c.TimeBase, RoundNearInf)
}

// Float32s returns the chunk as interleaved float32 samples in [-1, 1].
func (c *PCMChunk) Float32s() []float32 {
	out := make([]float32, c.Samples*c.Format.Channels())
	DecodeFloat32(c.Format, c.Planes, c.Samples, out)
	return out
}
