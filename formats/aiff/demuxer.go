// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

// PacketFrames is the number of sample frames per packet.
const PacketFrames = 1024

// aiffReader is an interface for aiff.Decoder to allow testing
type aiffReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Format probes and opens AIFF and AIFF-C files.
type Format struct{}

func (Format) Name() string         { return "aiff" }
func (Format) Extensions() []string { return []string{"aiff", "aif", "aifc"} }

func (Format) Probe(header []byte) bool {
	if len(header) < 12 || !bytes.Equal(header[:4], []byte("FORM")) {
		return false
	}
	form := string(header[8:12])
	return form == "AIFF" || form == "AIFC"
}

func (Format) Open(r io.ReadSeeker) (codec.Demuxer, error) {
	return Open(r)
}

// Demuxer reads the big-endian samples of an AIFF file through go-audio and
// repackages them as little-endian PCM: 8 and 16 bit files become
// pcm_s16le, 24 and 32 bit files become pcm_s32le.
type Demuxer struct {
	dec    aiffReader
	reopen func() (aiffReader, error)
	stream media.StreamDescriptor
	shift  uint // left shift from source bit depth to output width
	width  int  // output bytes per sample
	pos    int64
	buf    *goaudio.IntBuffer
}

func Open(r io.ReadSeeker) (*Demuxer, error) {
	reopen := func() (aiffReader, error) {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding aiff data: %w", err)
		}
		dec := aiff.NewDecoder(r)
		if !dec.IsValidFile() {
			return nil, ErrNotAiffFile
		}
		// IsValidFile leaves the reader after the header; read the chunks
		// from the start again.
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding aiff data: %w", err)
		}
		dec = aiff.NewDecoder(r)
		dec.ReadInfo()
		return dec, nil
	}

	rd, err := reopen()
	if err != nil {
		return nil, err
	}
	dec := rd.(*aiff.Decoder)

	frames := int64(dec.NumSampleFrames)
	return newDemuxer(rd, reopen, int(dec.BitDepth), frames)
}

func newDemuxer(dec aiffReader, reopen func() (aiffReader, error), bitDepth int, frames int64) (*Demuxer, error) {
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, ErrUnsupportedAiffLayout
	}

	d := &Demuxer{dec: dec, reopen: reopen}

	var id string
	var sf media.SampleFormat
	switch bitDepth {
	case 8, 16:
		id, sf, d.width, d.shift = codec.CodecPCMS16LE, media.SampleFormatS16, 2, uint(16-bitDepth)
	case 24, 32:
		id, sf, d.width, d.shift = codec.CodecPCMS32LE, media.SampleFormatS32, 4, uint(32-bitDepth)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	duration := media.NoPTS
	if frames > 0 {
		duration = frames
	}

	d.stream = media.StreamDescriptor{
		Index:        0,
		Type:         media.MediaTypeAudio,
		CodecID:      id,
		TimeBase:     media.SampleTimeBase(format.SampleRate),
		SampleFormat: sf,
		SampleRate:   format.SampleRate,
		Layout:       media.DefaultLayout(format.NumChannels),
		Duration:     duration,
	}
	d.buf = &goaudio.IntBuffer{
		Format: format,
		Data:   make([]int, PacketFrames*format.NumChannels),
	}
	return d, nil
}

func (d *Demuxer) Streams() []media.StreamDescriptor { return []media.StreamDescriptor{d.stream} }

// Metadata is always empty; go-audio does not expose AIFF text chunks.
func (d *Demuxer) Metadata() media.Metadata { return nil }

func (d *Demuxer) ReadPacket() (*media.Packet, error) {
	channels := d.stream.Layout.Channels()

	d.buf.Data = d.buf.Data[:cap(d.buf.Data)]
	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w", err)
	}

	frames := n / channels
	if frames == 0 {
		return nil, io.EOF
	}

	data := make([]byte, frames*channels*d.width)
	for i, v := range d.buf.Data[:frames*channels] {
		if d.width == 2 {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v<<d.shift)))
		} else {
			binary.LittleEndian.PutUint32(data[i*4:], uint32(int32(v<<d.shift)))
		}
	}

	pkt := media.NewPacket(0, data)
	pkt.PTS = d.pos
	pkt.DTS = d.pos
	pkt.Duration = int64(frames)
	d.pos += int64(frames)

	return pkt, nil
}

// Seek restarts decoding from the top of the file and skips ts frames.
// go-audio has no random access into the sound data chunk.
func (d *Demuxer) Seek(stream int, ts int64) error {
	if stream != 0 {
		return fmt.Errorf("%w: %d", ErrUnknownStream, stream)
	}

	dec, err := d.reopen()
	if err != nil {
		return err
	}
	d.dec = dec
	d.pos = 0

	channels := d.stream.Layout.Channels()
	for ts = max(0, ts); ts > d.pos; {
		want := min(int(ts-d.pos), PacketFrames)
		d.buf.Data = d.buf.Data[:want*channels]

		n, err := d.dec.PCMBuffer(d.buf)
		d.pos += int64(n / channels)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return fmt.Errorf("skipping to frame %d: %w", ts, err)
		}
		if n == 0 {
			break
		}
	}
	return nil
}

func (d *Demuxer) Close() error {
	d.buf = nil
	return nil
}
