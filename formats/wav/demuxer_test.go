// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

// createWAVFile builds a canonical WAV file around raw sample data.
func createWAVFile(tag, sampleRate, channels, bitsPerSample int, data []byte) []byte {
	buf := new(bytes.Buffer)

	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(tag))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}

// rampFile returns a 16-bit WAV whose frame i holds the value i on every
// channel.
func rampFile(t testing.TB, rate, channels, frames int) []byte {
	t.Helper()

	samples := make([]int16, frames*channels)
	for i := range frames {
		for c := range channels {
			samples[i*channels+c] = int16(i)
		}
	}
	buf := new(bytes.Buffer)
	if err := WriteWAV16(buf, rate, channels, samples); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	return buf.Bytes()
}

func mustOpen(t testing.TB, data []byte) *Demuxer {
	t.Helper()

	d, err := Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return d
}

func TestOpen_StreamDescriptor(t *testing.T) {
	t.Parallel()

	d := mustOpen(t, rampFile(t, 44100, 2, 3000))
	defer d.Close()

	streams := d.Streams()
	if len(streams) != 1 {
		t.Fatalf("Streams() = %d streams, want 1", len(streams))
	}

	s := streams[0]
	if s.Type != media.MediaTypeAudio {
		t.Errorf("Type = %s, want audio", s.Type)
	}
	if s.CodecID != codec.CodecPCMS16LE {
		t.Errorf("CodecID = %s, want %s", s.CodecID, codec.CodecPCMS16LE)
	}
	if s.SampleRate != 44100 || s.Layout != media.LayoutStereo {
		t.Errorf("format = %d Hz %s, want 44100 Hz stereo", s.SampleRate, s.Layout)
	}
	if s.SampleFormat != media.SampleFormatS16 {
		t.Errorf("SampleFormat = %s, want s16", s.SampleFormat)
	}
	if s.TimeBase != media.SampleTimeBase(44100) {
		t.Errorf("TimeBase = %s, want 1/44100", s.TimeBase)
	}
	if s.Duration != 3000 {
		t.Errorf("Duration = %d, want 3000", s.Duration)
	}
}

func TestOpen_Codecs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tag     int
		bits    int
		want    string
		wantErr error
	}{
		{"u8", formatPCM, 8, codec.CodecPCMU8, nil},
		{"s24", formatPCM, 24, codec.CodecPCMS24LE, nil},
		{"s32", formatPCM, 32, codec.CodecPCMS32LE, nil},
		{"f32", formatIEEEFloat, 32, codec.CodecPCMF32LE, nil},
		{"f64", formatIEEEFloat, 64, codec.CodecPCMF64LE, nil},
		{"adpcm", 2, 16, "", ErrUnsupportedWavLayout},
		{"float16", formatIEEEFloat, 16, "", ErrUnsupportedWavLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := createWAVFile(tt.tag, 8000, 1, tt.bits, make([]byte, 64))
			d, err := Open(bytes.NewReader(data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if got := d.Streams()[0].CodecID; got != tt.want {
				t.Errorf("CodecID = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOpen_NotWAV(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("This is not a WAV file at all")} {
		if _, err := Open(bytes.NewReader(data)); !errors.Is(err, ErrNotWavFile) {
			t.Errorf("Open(%q) error = %v, want ErrNotWavFile", data, err)
		}
	}
}

func TestDemuxer_ReadPacket(t *testing.T) {
	t.Parallel()

	frames := 2*PacketFrames + 100
	d := mustOpen(t, rampFile(t, 8000, 2, frames))

	var next int64
	for {
		pkt, err := d.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket() error = %v", err)
		}

		if pkt.PTS != next {
			t.Errorf("PTS = %d, want %d", pkt.PTS, next)
		}
		first := int16(binary.LittleEndian.Uint16(pkt.Data))
		if int64(first) != pkt.PTS {
			t.Errorf("packet at %d starts with sample %d", pkt.PTS, first)
		}
		next += pkt.Duration
	}

	if next != int64(frames) {
		t.Errorf("read %d frames, want %d", next, frames)
	}
	if _, err := d.ReadPacket(); err != io.EOF {
		t.Errorf("ReadPacket() after EOF = %v, want io.EOF", err)
	}
}

var errFlaky = errors.New("flaky read")

// flakyReader fails a single Read that crosses failAt, after delivering
// the bytes before it.
type flakyReader struct {
	*bytes.Reader
	failAt int64
	armed  bool
}

func (f *flakyReader) Read(p []byte) (int, error) {
	pos, _ := f.Seek(0, io.SeekCurrent)
	if f.armed && pos <= f.failAt && f.failAt < pos+int64(len(p)) {
		f.armed = false
		n, _ := f.Reader.Read(p[:f.failAt-pos])
		return n, errFlaky
	}
	return f.Reader.Read(p)
}

func TestDemuxer_RetryAfterReadError(t *testing.T) {
	t.Parallel()

	frames := 5*PacketFrames + 10
	r := &flakyReader{Reader: bytes.NewReader(rampFile(t, 8000, 2, frames))}
	d, err := Open(r)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// One byte into the third packet.
	r.failAt = d.dataStart + int64(2*PacketFrames*d.blockAlign) + 1
	r.armed = true

	var next int64
	var failures int
	for {
		pkt, err := d.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !errors.Is(err, errFlaky) {
				t.Fatalf("ReadPacket() error = %v, want errFlaky", err)
			}
			failures++
			continue
		}

		if pkt.PTS != next {
			t.Errorf("PTS = %d, want %d", pkt.PTS, next)
		}
		for i := range int(pkt.Duration) {
			left := int16(binary.LittleEndian.Uint16(pkt.Data[i*4:]))
			right := int16(binary.LittleEndian.Uint16(pkt.Data[i*4+2:]))
			if int64(left) != pkt.PTS+int64(i) || left != right {
				t.Fatalf("frame %d = (%d, %d)", pkt.PTS+int64(i), left, right)
			}
		}
		next += pkt.Duration
	}

	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
	if next != int64(frames) {
		t.Errorf("read %d frames, want %d", next, frames)
	}
}

func TestDemuxer_Seek(t *testing.T) {
	t.Parallel()

	d := mustOpen(t, rampFile(t, 8000, 1, 5000))

	tests := []struct {
		ts   int64
		want int64
	}{
		{2500, 2500},
		{0, 0},
		{4999, 4999},
		{-10, 0},
	}

	for _, tt := range tests {
		if err := d.Seek(0, tt.ts); err != nil {
			t.Fatalf("Seek(%d) error = %v", tt.ts, err)
		}
		pkt, err := d.ReadPacket()
		if err != nil {
			t.Fatalf("ReadPacket() after Seek(%d) error = %v", tt.ts, err)
		}
		if pkt.PTS != tt.want {
			t.Errorf("Seek(%d): PTS = %d, want %d", tt.ts, pkt.PTS, tt.want)
		}
		if got := int64(int16(binary.LittleEndian.Uint16(pkt.Data))); got != tt.want {
			t.Errorf("Seek(%d): first sample = %d, want %d", tt.ts, got, tt.want)
		}
	}

	if err := d.Seek(0, 99999); err != nil {
		t.Fatalf("Seek(past end) error = %v", err)
	}
	if _, err := d.ReadPacket(); err != io.EOF {
		t.Errorf("ReadPacket() after seeking past end = %v, want io.EOF", err)
	}

	if err := d.Seek(1, 0); !errors.Is(err, ErrUnknownStream) {
		t.Errorf("Seek(stream 1) = %v, want ErrUnknownStream", err)
	}
}

func TestDemuxer_Truncated(t *testing.T) {
	t.Parallel()

	// The header claims 100 frames but only 10.5 are present.
	data := rampFile(t, 8000, 1, 100)
	data = data[:44+21]

	d := mustOpen(t, data)
	pkt, err := d.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket() error = %v", err)
	}
	if pkt.Duration != 10 || len(pkt.Data) != 20 {
		t.Errorf("packet = %d frames %d bytes, want 10 frames 20 bytes", pkt.Duration, len(pkt.Data))
	}
	if _, err := d.ReadPacket(); err != io.EOF {
		t.Errorf("ReadPacket() = %v, want io.EOF", err)
	}
}

func TestFormat_Probe(t *testing.T) {
	t.Parallel()

	f := Format{}
	if f.Name() != "wav" {
		t.Errorf("Name() = %q", f.Name())
	}
	if !f.Probe([]byte("RIFF\x00\x00\x00\x00WAVEfmt ")) {
		t.Error("Probe() rejected a WAV header")
	}
	if f.Probe([]byte("RIFF\x00\x00\x00\x00AVI ")) {
		t.Error("Probe() accepted an AVI header")
	}
	if f.Probe([]byte("RIFF")) {
		t.Error("Probe() accepted a short header")
	}
}

func BenchmarkDemuxer_ReadPacket(b *testing.B) {
	data := rampFile(b, 44100, 2, 44100)

	b.ReportAllocs()

	for b.Loop() {
		d, _ := Open(bytes.NewReader(data))
		for {
			if _, err := d.ReadPacket(); err != nil {
				break
			}
		}
	}
}
