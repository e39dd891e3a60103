// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

func stream(id string, layout media.ChannelLayout) media.StreamDescriptor {
	return media.StreamDescriptor{
		CodecID:    id,
		SampleRate: 8000,
		Layout:     layout,
		TimeBase:   media.SampleTimeBase(8000),
	}
}

func mustDecoder(t *testing.T, id string, layout media.ChannelLayout) codec.Decoder {
	t.Helper()

	dec, err := NewDecoder(stream(id, layout))
	if err != nil {
		t.Fatalf("NewDecoder(%s) error = %v", id, err)
	}
	return dec
}

func decodeOne(t *testing.T, dec codec.Decoder, data []byte) *media.Frame {
	t.Helper()

	pkt := media.NewPacket(0, data)
	pkt.PTS = 42
	if err := dec.SendPacket(pkt); err != nil {
		t.Fatalf("SendPacket() error = %v", err)
	}
	frame, err := dec.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame() error = %v", err)
	}
	return frame
}

func TestDecoder_Conversions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		in      []byte
		want    []byte
		format  media.SampleFormat
		samples int
	}{
		{"u8", codec.CodecPCMU8, []byte{0x80, 0xff}, []byte{0x80, 0xff}, media.SampleFormatU8, 2},
		{"s16le", codec.CodecPCMS16LE, []byte{0x01, 0x02}, []byte{0x01, 0x02}, media.SampleFormatS16, 1},
		{"s16be", codec.CodecPCMS16BE, []byte{0x01, 0x02}, []byte{0x02, 0x01}, media.SampleFormatS16, 1},
		{"s24le", codec.CodecPCMS24LE, []byte{0x01, 0x02, 0x03}, []byte{0x00, 0x01, 0x02, 0x03}, media.SampleFormatS32, 1},
		{"s24be", codec.CodecPCMS24BE, []byte{0x03, 0x02, 0x01}, []byte{0x00, 0x01, 0x02, 0x03}, media.SampleFormatS32, 1},
		{"s32be", codec.CodecPCMS32BE, []byte{0x04, 0x03, 0x02, 0x01}, []byte{0x01, 0x02, 0x03, 0x04}, media.SampleFormatS32, 1},
		{"f32le", codec.CodecPCMF32LE, []byte{0, 0, 0x80, 0x3f}, []byte{0, 0, 0x80, 0x3f}, media.SampleFormatF32, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			frame := decodeOne(t, mustDecoder(t, tt.id, media.LayoutMono), tt.in)

			if frame.Format.SampleFormat != tt.format {
				t.Errorf("SampleFormat = %s, want %s", frame.Format.SampleFormat, tt.format)
			}
			if frame.Samples != tt.samples {
				t.Errorf("Samples = %d, want %d", frame.Samples, tt.samples)
			}
			if frame.PTS != 42 {
				t.Errorf("PTS = %d, want 42", frame.PTS)
			}
			if !bytes.Equal(frame.Planes[0], tt.want) {
				t.Errorf("data = % x, want % x", frame.Planes[0], tt.want)
			}
		})
	}
}

func TestDecoder_InvalidPacket(t *testing.T) {
	t.Parallel()

	dec := mustDecoder(t, codec.CodecPCMS16LE, media.LayoutStereo)

	// 3 bytes is not a whole stereo s16 frame.
	err := dec.SendPacket(media.NewPacket(0, []byte{1, 2, 3}))
	if !errors.Is(err, codec.ErrInvalidData) {
		t.Fatalf("SendPacket() = %v, want ErrInvalidData", err)
	}

	// The decoder keeps working.
	frame := decodeOne(t, dec, []byte{1, 2, 3, 4})
	if frame.Samples != 1 {
		t.Errorf("Samples = %d, want 1", frame.Samples)
	}
}

func TestDecoder_TwoPhase(t *testing.T) {
	t.Parallel()

	dec := mustDecoder(t, codec.CodecPCMS16LE, media.LayoutMono)

	if _, err := dec.ReceiveFrame(); !errors.Is(err, codec.ErrAgain) {
		t.Errorf("ReceiveFrame() on empty decoder = %v, want ErrAgain", err)
	}

	if err := dec.SendPacket(media.NewPacket(0, []byte{0, 0})); err != nil {
		t.Fatalf("SendPacket() error = %v", err)
	}
	if err := dec.SendPacket(media.NewPacket(0, []byte{0, 0})); !errors.Is(err, codec.ErrAgain) {
		t.Errorf("second SendPacket() = %v, want ErrAgain", err)
	}

	// Drain: the held packet still comes out, then EOF.
	if err := dec.SendPacket(nil); err != nil {
		t.Fatalf("SendPacket(nil) error = %v", err)
	}
	if _, err := dec.ReceiveFrame(); err != nil {
		t.Fatalf("ReceiveFrame() error = %v", err)
	}
	if _, err := dec.ReceiveFrame(); err != io.EOF {
		t.Errorf("ReceiveFrame() after drain = %v, want io.EOF", err)
	}
	if err := dec.SendPacket(media.NewPacket(0, []byte{0, 0})); !errors.Is(err, codec.ErrEOFSent) {
		t.Errorf("SendPacket() after drain = %v, want ErrEOFSent", err)
	}

	dec.Reset()
	frame := decodeOne(t, dec, []byte{0, 0})
	if frame.Samples != 1 {
		t.Errorf("Samples after Reset = %d, want 1", frame.Samples)
	}

	if err := dec.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewDecoder_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewDecoder(stream("pcm_s12", media.LayoutMono)); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("NewDecoder(unknown) = %v, want ErrUnknownCodec", err)
	}
	if _, err := NewDecoder(stream(codec.CodecPCMS16LE, 0)); !errors.Is(err, ErrNoChannels) {
		t.Errorf("NewDecoder(no channels) = %v, want ErrNoChannels", err)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	reg := codec.NewRegistry()
	Register(reg)

	for _, id := range []string{codec.CodecPCMU8, codec.CodecPCMS24BE, codec.CodecPCMF64LE, codec.CodecMP3} {
		if _, ok := reg.Decoder(id); !ok {
			t.Errorf("codec %s not registered", id)
		}
	}

	factory, _ := reg.Decoder(codec.CodecMP3)
	dec, err := factory(stream(codec.CodecMP3, media.LayoutStereo))
	if err != nil {
		t.Fatalf("mp3 factory error = %v", err)
	}
	frame := decodeOne(t, dec, make([]byte, 1152*4))
	if frame.Samples != 1152 || frame.Format.SampleFormat != media.SampleFormatS16 {
		t.Errorf("mp3 frame = %d samples %s", frame.Samples, frame.Format.SampleFormat)
	}

	if sf, ok := SampleFormat(codec.CodecPCMS24LE); !ok || sf != media.SampleFormatS32 {
		t.Errorf("SampleFormat(s24le) = %s, %v", sf, ok)
	}
}

// BenchmarkDecoder_S16BE benchmarks byte swapping a typical packet
func BenchmarkDecoder_S16BE(b *testing.B) {
	dec, _ := NewDecoder(stream(codec.CodecPCMS16BE, media.LayoutStereo))
	data := make([]byte, 4096)

	b.ReportAllocs()

	for b.Loop() {
		_ = dec.SendPacket(media.NewPacket(0, data))
		_, _ = dec.ReceiveFrame()
	}
}
