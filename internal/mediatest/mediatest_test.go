// SPDX-License-Identifier: EPL-2.0

package mediatest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

func TestDemuxer_Packets(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(Config{SampleRate: 8000, Channels: 1, Frames: 2500, PacketFrames: 1000, ExtraStreams: 2})

	streams := d.Streams()
	if len(streams) != 3 || streams[2].Type != media.MediaTypeAudio {
		t.Fatalf("streams = %v", streams)
	}

	var audio, other int
	var samples int64
	for {
		pkt, err := d.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket() error = %v", err)
		}
		if pkt.StreamIndex != 2 {
			other++
			continue
		}
		if pkt.PTS != samples {
			t.Errorf("PTS = %d, want %d", pkt.PTS, samples)
		}
		if got := int64(binary.LittleEndian.Uint16(pkt.Data)); got != samples {
			t.Errorf("first sample = %d, want %d", got, samples)
		}
		samples += pkt.Duration
		audio++
	}

	if audio != 3 || other != 6 || samples != 2500 {
		t.Errorf("audio %d, other %d, samples %d; want 3, 6, 2500", audio, other, samples)
	}
}

func TestDemuxer_Seek(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(Config{Frames: 48000, PacketFrames: 1000, KeyframeInterval: 4, TimeBase: media.Rational{Num: 1, Den: 90000}})

	// 0.5 s is packet 24, already a keyframe; 0.6 s is packet 28.8 -> 28.
	for _, tt := range []struct{ ts, want int64 }{{45000, 45000}, {54000, 52500}} {
		if err := d.Seek(0, tt.ts); err != nil {
			t.Fatalf("Seek() error = %v", err)
		}
		pkt, err := d.ReadPacket()
		if err != nil {
			t.Fatalf("ReadPacket() error = %v", err)
		}
		if pkt.PTS != tt.want {
			t.Errorf("Seek(%d) landed on %d, want %d", tt.ts, pkt.PTS, tt.want)
		}
	}
}

func TestDemuxer_Failures(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(Config{ReadErrorAt: 2, FailSeek: true})

	if _, err := d.ReadPacket(); err != nil {
		t.Fatalf("first ReadPacket() error = %v", err)
	}
	if _, err := d.ReadPacket(); !errors.Is(err, ErrRead) {
		t.Errorf("second ReadPacket() = %v, want ErrRead", err)
	}
	if _, err := d.ReadPacket(); err != nil {
		t.Errorf("third ReadPacket() error = %v", err)
	}
	if err := d.Seek(0, 0); !errors.Is(err, ErrSeek) {
		t.Errorf("Seek() = %v, want ErrSeek", err)
	}
}

func TestFormat_Open(t *testing.T) {
	t.Parallel()

	f := NewFormat(Config{})
	if !f.Probe([]byte(Magic + "rest")) {
		t.Error("Probe() rejected magic")
	}
	if _, err := f.Open(bytes.NewReader([]byte("nope"))); !errors.Is(err, ErrNoMagic) {
		t.Errorf("Open() = %v, want ErrNoMagic", err)
	}
	if _, err := f.Open(bytes.NewReader([]byte(Magic))); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if f.Last() == nil {
		t.Error("Last() = nil after Open")
	}
}

func TestDelayedDecoder(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(Config{Channels: 1, Frames: 5000, PacketFrames: 1000, DecoderDelay: 2})
	dec, err := NewDelayedDecoder(d.Streams()[0], 2)
	if err != nil {
		t.Fatalf("NewDelayedDecoder() error = %v", err)
	}

	var frames int
	for i := range 3 {
		pkt, _ := d.ReadPacket()
		if err := dec.SendPacket(pkt); err != nil {
			t.Fatalf("SendPacket(%d) error = %v", i, err)
		}
		for {
			if _, err := dec.ReceiveFrame(); err != nil {
				if !errors.Is(err, codec.ErrAgain) {
					t.Fatalf("ReceiveFrame() error = %v", err)
				}
				break
			}
			frames++
		}
	}
	if frames != 1 {
		t.Errorf("frames out after 3 packets = %d, want 1", frames)
	}

	if err := dec.SendPacket(nil); err != nil {
		t.Fatalf("drain error = %v", err)
	}
	for {
		_, err := dec.ReceiveFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReceiveFrame() error = %v", err)
		}
		frames++
	}
	if frames != 3 {
		t.Errorf("frames after drain = %d, want 3", frames)
	}
}
