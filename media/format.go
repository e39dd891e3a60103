// SPDX-License-Identifier: EPL-2.0

package media

import (
	"fmt"
	"math/bits"
	"strings"
)

// SampleFormat describes how one sample is stored and whether channels are
// interleaved in a single plane or split into one plane per channel.
type SampleFormat int

const (
	SampleFormatNone SampleFormat = iota
	SampleFormatU8
	SampleFormatS16
	SampleFormatS32
	SampleFormatF32
	SampleFormatF64
	SampleFormatU8P
	SampleFormatS16P
	SampleFormatS32P
	SampleFormatF32P
	SampleFormatF64P
)

var sampleFormatNames = map[SampleFormat]string{
	SampleFormatNone: "none",
	SampleFormatU8:   "u8",
	SampleFormatS16:  "s16",
	SampleFormatS32:  "s32",
	SampleFormatF32:  "f32",
	SampleFormatF64:  "f64",
	SampleFormatU8P:  "u8p",
	SampleFormatS16P: "s16p",
	SampleFormatS32P: "s32p",
	SampleFormatF32P: "f32p",
	SampleFormatF64P: "f64p",
}

func (f SampleFormat) String() string {
	if name, ok := sampleFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("sample_format(%d)", int(f))
}

// ParseSampleFormat maps a name such as "s16" or "f32p" to its SampleFormat.
func ParseSampleFormat(name string) (SampleFormat, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range sampleFormatNames {
		if n == name && f != SampleFormatNone {
			return f, nil
		}
	}
	return SampleFormatNone, fmt.Errorf("%w: %q", ErrUnknownSampleFormat, name)
}

// BytesPerSample is the storage size of a single sample of one channel.
func (f SampleFormat) BytesPerSample() int {
	switch f.Packed() {
	case SampleFormatU8:
		return 1
	case SampleFormatS16:
		return 2
	case SampleFormatS32, SampleFormatF32:
		return 4
	case SampleFormatF64:
		return 8
	}
	return 0
}

func (f SampleFormat) IsPlanar() bool { return f >= SampleFormatU8P && f <= SampleFormatF64P }

func (f SampleFormat) IsFloat() bool {
	p := f.Packed()
	return p == SampleFormatF32 || p == SampleFormatF64
}

// Packed returns the interleaved variant of f.
func (f SampleFormat) Packed() SampleFormat {
	if f.IsPlanar() {
		return f - (SampleFormatU8P - SampleFormatU8)
	}
	return f
}

// Planar returns the planar variant of f.
func (f SampleFormat) Planar() SampleFormat {
	if f == SampleFormatNone || f.IsPlanar() {
		return f
	}
	return f + (SampleFormatU8P - SampleFormatU8)
}

// ChannelLayout is a bit mask of speaker positions. Channels inside a frame
// are ordered by ascending bit.
type ChannelLayout uint64

const (
	ChannelFrontLeft ChannelLayout = 1 << iota
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLowFrequency
	ChannelBackLeft
	ChannelBackRight
	ChannelFrontLeftOfCenter
	ChannelFrontRightOfCenter
	ChannelBackCenter
	ChannelSideLeft
	ChannelSideRight
)

const (
	LayoutMono        = ChannelFrontCenter
	LayoutStereo      = ChannelFrontLeft | ChannelFrontRight
	Layout2Point1     = LayoutStereo | ChannelLowFrequency
	LayoutSurround    = LayoutStereo | ChannelFrontCenter
	LayoutQuad        = LayoutStereo | ChannelBackLeft | ChannelBackRight
	Layout5Point0Back = LayoutSurround | ChannelBackLeft | ChannelBackRight
	Layout5Point1Back = Layout5Point0Back | ChannelLowFrequency
	Layout6Point1     = LayoutSurround | ChannelLowFrequency | ChannelBackCenter | ChannelSideLeft | ChannelSideRight
	Layout7Point1     = Layout5Point1Back | ChannelSideLeft | ChannelSideRight
)

var layoutNames = []struct {
	layout ChannelLayout
	name   string
}{
	{LayoutMono, "mono"},
	{LayoutStereo, "stereo"},
	{Layout2Point1, "2.1"},
	{LayoutSurround, "3.0"},
	{LayoutQuad, "quad"},
	{Layout5Point0Back, "5.0"},
	{Layout5Point1Back, "5.1"},
	{Layout6Point1, "6.1"},
	{Layout7Point1, "7.1"},
}

// DefaultLayout returns the conventional layout for a channel count, or a
// layout with the lowest n positions set when no convention exists.
func DefaultLayout(channels int) ChannelLayout {
	switch channels {
	case 1:
		return LayoutMono
	case 2:
		return LayoutStereo
	case 3:
		return LayoutSurround
	case 4:
		return LayoutQuad
	case 5:
		return Layout5Point0Back
	case 6:
		return Layout5Point1Back
	case 7:
		return Layout6Point1
	case 8:
		return Layout7Point1
	}
	if channels <= 0 || channels > 64 {
		return 0
	}
	return ChannelLayout(1<<uint(channels) - 1)
}

// Channels returns the number of channels in the layout.
func (l ChannelLayout) Channels() int { return bits.OnesCount64(uint64(l)) }

// Index returns the position of ch inside frames using this layout, or -1.
func (l ChannelLayout) Index(ch ChannelLayout) int {
	if l&ch == 0 || bits.OnesCount64(uint64(ch)) != 1 {
		return -1
	}
	return bits.OnesCount64(uint64(l & (ch - 1)))
}

// Positions lists the single-bit channels of l in frame order.
func (l ChannelLayout) Positions() []ChannelLayout {
	out := make([]ChannelLayout, 0, l.Channels())
	for rest := uint64(l); rest != 0; rest &= rest - 1 {
		out = append(out, ChannelLayout(rest&-rest))
	}
	return out
}

func (l ChannelLayout) String() string {
	for _, n := range layoutNames {
		if n.layout == l {
			return n.name
		}
	}
	return fmt.Sprintf("%d channels (0x%x)", l.Channels(), uint64(l))
}

// AudioFormat is the (sample format, rate, layout) triple a frame or chunk
// is expressed in.
type AudioFormat struct {
	SampleFormat SampleFormat
	SampleRate   int
	Layout       ChannelLayout
}

func (f AudioFormat) Channels() int { return f.Layout.Channels() }

// FrameSize is the number of bytes one sample of every channel occupies.
func (f AudioFormat) FrameSize() int { return f.SampleFormat.BytesPerSample() * f.Channels() }

// Planes is the number of buffers a frame in this format carries.
func (f AudioFormat) Planes() int {
	if f.SampleFormat.IsPlanar() {
		return f.Channels()
	}
	return 1
}

// Validate reports whether f describes something that can hold samples.
func (f AudioFormat) Validate() error {
	switch {
	case f.SampleFormat.BytesPerSample() == 0:
		return fmt.Errorf("%w: %s", ErrUnknownSampleFormat, f.SampleFormat)
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, f.SampleRate)
	case f.Layout.Channels() == 0:
		return ErrEmptyLayout
	}
	return nil
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%s %dHz %s", f.SampleFormat, f.SampleRate, f.Layout)
}

// MediaType is the kind of content a stream carries.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeAudio
	MediaTypeVideo
	MediaTypeSubtitle
	MediaTypeData
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeAudio:
		return "audio"
	case MediaTypeVideo:
		return "video"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeData:
		return "data"
	}
	return "unknown"
}
