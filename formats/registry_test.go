// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"testing"

	"github.com/ik5/mediapipe/codec"
)

func TestNewRegistry_Probe(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	tests := []struct {
		name   string
		header []byte
		file   string
		want   string
	}{
		{"wav", []byte("RIFF\x24\x00\x00\x00WAVEfmt "), "", "wav"},
		{"aiff", []byte("FORM\x00\x00\x00\x00AIFF"), "", "aiff"},
		{"ogg", []byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00"), "", "ogg"},
		{"id3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"), "", "mp3"},
		{"mpeg frame", []byte{0xff, 0xfb, 0x90, 0x64, 0, 0, 0, 0, 0, 0, 0, 0}, "", "mp3"},
		{"extension fallback", []byte("garbage....."), "song.AIF", "aiff"},
		{"magic beats extension", []byte("OggS........"), "song.wav", "ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, ok := reg.Probe(tt.header, tt.file)
			if !ok {
				t.Fatalf("Probe() found nothing, want %s", tt.want)
			}
			if f.Name() != tt.want {
				t.Errorf("Probe() = %s, want %s", f.Name(), tt.want)
			}
		})
	}

	if _, ok := reg.Probe([]byte("garbage....."), "notes.txt"); ok {
		t.Error("Probe() matched unknown input")
	}
}

func TestNewRegistry_Decoders(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	ids := []string{
		codec.CodecPCMU8, codec.CodecPCMS16LE, codec.CodecPCMS16BE,
		codec.CodecPCMS24LE, codec.CodecPCMS24BE, codec.CodecPCMS32LE,
		codec.CodecPCMS32BE, codec.CodecPCMF32LE, codec.CodecPCMF64LE,
		codec.CodecMP3, codec.CodecVorbis,
	}
	for _, id := range ids {
		if _, ok := reg.Decoder(id); !ok {
			t.Errorf("no decoder for %s", id)
		}
	}

	if _, ok := reg.Resampler(); !ok {
		t.Error("no resampler registered")
	}
}
