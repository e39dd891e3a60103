// SPDX-License-Identifier: EPL-2.0

// Package mediatest provides a synthetic container and codec implementing
// the codec interfaces, for testing the pipeline without media files.
package mediatest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
	"github.com/ik5/mediapipe/utils"
)

// Magic starts every input the synthetic format accepts.
const Magic = "MTST"

// CodecDelayed is the codec id of streams decoded by DelayedDecoder.
const CodecDelayed = "mediatest_delayed"

var (
	ErrUnknownStream = errors.New("mediatest: unknown stream")
	ErrRead          = errors.New("mediatest: simulated read failure")
	ErrSeek          = errors.New("mediatest: simulated seek failure")
	ErrNoMagic       = errors.New("mediatest: input does not start with " + Magic)
)

// Config describes the synthetic stream. Zero fields take the defaults
// noted on each one.
type Config struct {
	SampleRate int // 48000
	Channels   int // 2
	Frames     int // total samples per channel, 48000
	// PacketFrames is the number of samples per packet, 1024.
	PacketFrames int
	// TimeBase of the audio stream; one sample by default.
	TimeBase media.Rational
	// KeyframeInterval is the packet spacing of random access points, 1.
	KeyframeInterval int
	// Waveform produces the value of one sample. When nil every channel of
	// sample i stores the raw 16-bit value i mod 32768, so tests can read
	// positions back from unresampled output.
	Waveform func(sample, channel int) float32

	// CorruptPackets lists audio packet indexes whose payload is cut short
	// so the codec rejects them.
	CorruptPackets []int
	// ExtraStreams non-audio streams are placed before the audio stream and
	// interleaved with it.
	ExtraStreams int
	// DecoderDelay makes the stream use CodecDelayed, which holds back that
	// many frames until more input or a drain arrives.
	DecoderDelay int
	// ReadErrorAt makes the ReadPacket call with this 1-based number fail
	// once with ErrRead.
	ReadErrorAt int
	// FailSeek makes every Seek fail with ErrSeek.
	FailSeek bool
	// SeekLandsLate moves every seek this many packets past the target.
	SeekLandsLate int

	Metadata media.Metadata
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = 48000
	}
	if c.Channels == 0 {
		c.Channels = 2
	}
	if c.Frames == 0 {
		c.Frames = 48000
	}
	if c.PacketFrames == 0 {
		c.PacketFrames = 1024
	}
	if !c.TimeBase.Valid() {
		c.TimeBase = media.SampleTimeBase(c.SampleRate)
	}
	if c.KeyframeInterval == 0 {
		c.KeyframeInterval = 1
	}
	return c
}

// Sine returns a waveform of a sine at freq Hz.
func Sine(sampleRate int, freq float64) func(int, int) float32 {
	return func(sample, _ int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * freq * t))
	}
}

// Constant returns a waveform holding value.
func Constant(value float32) func(int, int) float32 {
	return func(int, int) float32 { return value }
}

// Format is a codec.Format opening every input that starts with Magic as a
// stream described by its Config.
type Format struct {
	Config Config

	opened atomic.Pointer[Demuxer]
}

func NewFormat(cfg Config) *Format {
	return &Format{Config: cfg.withDefaults()}
}

func (f *Format) Name() string         { return "mediatest" }
func (f *Format) Extensions() []string { return []string{"mtst"} }

func (f *Format) Probe(header []byte) bool {
	return bytes.HasPrefix(header, []byte(Magic))
}

func (f *Format) Open(r io.ReadSeeker) (codec.Demuxer, error) {
	head := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, head); err != nil || string(head) != Magic {
		return nil, ErrNoMagic
	}
	d := NewDemuxer(f.Config)
	f.opened.Store(d)
	return d, nil
}

// Last returns the demuxer most recently opened through f.
func (f *Format) Last() *Demuxer { return f.opened.Load() }

// Demuxer produces the packets of a Config.
type Demuxer struct {
	cfg     Config
	streams []media.StreamDescriptor
	audio   int // index of the audio stream

	packet  int // next audio packet
	pending []*media.Packet
	reads   atomic.Int64
	seeks   atomic.Int64
	closed  atomic.Bool
}

func NewDemuxer(cfg Config) *Demuxer {
	cfg = cfg.withDefaults()
	d := &Demuxer{cfg: cfg, audio: cfg.ExtraStreams}

	for i := range cfg.ExtraStreams {
		kind := media.MediaTypeVideo
		if i%2 == 1 {
			kind = media.MediaTypeData
		}
		d.streams = append(d.streams, media.StreamDescriptor{
			Index:    i,
			Type:     kind,
			CodecID:  "none",
			TimeBase: media.Rational{Num: 1, Den: 90000},
			Duration: media.NoPTS,
		})
	}

	codecID := codec.CodecPCMS16LE
	if cfg.DecoderDelay > 0 {
		codecID = CodecDelayed
	}
	d.streams = append(d.streams, media.StreamDescriptor{
		Index:        d.audio,
		Type:         media.MediaTypeAudio,
		CodecID:      codecID,
		TimeBase:     cfg.TimeBase,
		SampleFormat: media.SampleFormatS16,
		SampleRate:   cfg.SampleRate,
		Layout:       media.DefaultLayout(cfg.Channels),
		Duration:     d.toStream(int64(cfg.Frames)),
		Metadata:     cfg.Metadata,
	})
	return d
}

func (d *Demuxer) toStream(samples int64) int64 {
	return media.Rescale(samples, media.SampleTimeBase(d.cfg.SampleRate), d.cfg.TimeBase, media.RoundNearInf)
}

// Packets is the number of audio packets in the stream.
func (d *Demuxer) Packets() int {
	return (d.cfg.Frames + d.cfg.PacketFrames - 1) / d.cfg.PacketFrames
}

// Reads counts ReadPacket calls, Seeks counts Seek calls.
func (d *Demuxer) Reads() int64 { return d.reads.Load() }
func (d *Demuxer) Seeks() int64 { return d.seeks.Load() }
func (d *Demuxer) Closed() bool { return d.closed.Load() }

func (d *Demuxer) Streams() []media.StreamDescriptor { return d.streams }
func (d *Demuxer) Metadata() media.Metadata          { return d.cfg.Metadata }

func (d *Demuxer) ReadPacket() (*media.Packet, error) {
	if n := d.reads.Add(1); n == int64(d.cfg.ReadErrorAt) {
		return nil, ErrRead
	}

	if len(d.pending) == 0 {
		if d.packet >= d.Packets() {
			return nil, io.EOF
		}
		for i := range d.cfg.ExtraStreams {
			d.pending = append(d.pending, media.NewPacket(i, []byte{0x00}))
		}
		d.pending = append(d.pending, d.audioPacket(d.packet))
		d.packet++
	}

	pkt := d.pending[0]
	d.pending = d.pending[1:]
	return pkt, nil
}

func (d *Demuxer) audioPacket(index int) *media.Packet {
	start := index * d.cfg.PacketFrames
	frames := min(d.cfg.PacketFrames, d.cfg.Frames-start)
	channels := d.cfg.Channels

	data := make([]byte, frames*channels*2)
	for i := range frames {
		for c := range channels {
			v := int16((start + i) % 32768)
			if d.cfg.Waveform != nil {
				v = utils.Float32ToInt16(d.cfg.Waveform(start+i, c))
			}
			binary.LittleEndian.PutUint16(data[(i*channels+c)*2:], uint16(v))
		}
	}

	for _, bad := range d.cfg.CorruptPackets {
		if bad == index {
			data = data[:len(data)-1]
		}
	}

	pkt := media.NewPacket(d.audio, data)
	pkt.PTS = d.toStream(int64(start))
	pkt.DTS = pkt.PTS
	pkt.Duration = d.toStream(int64(frames))
	return pkt
}

// Seek moves to the keyframe packet at or before ts, or SeekLandsLate
// packets after it.
func (d *Demuxer) Seek(stream int, ts int64) error {
	d.seeks.Add(1)
	if d.cfg.FailSeek {
		return ErrSeek
	}
	if stream != d.audio {
		return fmt.Errorf("%w: %d", ErrUnknownStream, stream)
	}

	sample := media.Rescale(max(0, ts), d.cfg.TimeBase, media.SampleTimeBase(d.cfg.SampleRate), media.RoundDown)
	packet := int(sample) / d.cfg.PacketFrames
	packet -= packet % d.cfg.KeyframeInterval
	packet += d.cfg.SeekLandsLate

	d.packet = min(packet, d.Packets())
	d.pending = nil
	return nil
}

func (d *Demuxer) Close() error {
	d.closed.Store(true)
	return nil
}
