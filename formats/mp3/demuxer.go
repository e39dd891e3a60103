// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

// go-mp3 always produces interleaved stereo s16le.
const (
	channels       = 2
	bytesPerFrame  = channels * 2
	FrameSamples   = 1152 // samples per MPEG-1 Layer III frame
	packetByteSize = FrameSamples * bytesPerFrame
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	SampleRate() int
	Length() int64
}

// Format probes and opens MPEG audio files.
type Format struct{}

func (Format) Name() string         { return "mp3" }
func (Format) Extensions() []string { return []string{"mp3"} }

// Probe accepts an ID3v2 tag or an MPEG audio frame sync with a valid layer.
func (Format) Probe(header []byte) bool {
	if bytes.HasPrefix(header, []byte("ID3")) {
		return true
	}
	if len(header) < 3 {
		return false
	}
	sync := header[0] == 0xff && header[1]&0xe0 == 0xe0
	layer := (header[1] >> 1) & 0x03
	bitrate := header[2] >> 4
	return sync && layer != 0 && bitrate != 0x0f
}

func (Format) Open(r io.ReadSeeker) (codec.Demuxer, error) {
	return Open(r)
}

// Demuxer hands out the decoded PCM of go-mp3 in frame-sized packets
// tagged CodecMP3. go-mp3 decodes whole frames internally, so the packets
// are already PCM and the registry maps CodecMP3 onto the PCM codec.
type Demuxer struct {
	dec    mp3Reader
	stream media.StreamDescriptor
	pos    int64 // byte offset in the decoded stream
	buf    []byte
}

func Open(r io.ReadSeeker) (*Demuxer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMP3File, err)
	}
	return newDemuxer(dec), nil
}

func newDemuxer(dec mp3Reader) *Demuxer {
	rate := dec.SampleRate()

	duration := media.NoPTS
	if n := dec.Length(); n >= 0 {
		duration = n / bytesPerFrame
	}

	return &Demuxer{
		dec: dec,
		stream: media.StreamDescriptor{
			Index:        0,
			Type:         media.MediaTypeAudio,
			CodecID:      codec.CodecMP3,
			TimeBase:     media.SampleTimeBase(rate),
			SampleFormat: media.SampleFormatS16,
			SampleRate:   rate,
			Layout:       media.LayoutStereo,
			Duration:     duration,
		},
		buf: make([]byte, packetByteSize),
	}
}

func (d *Demuxer) Streams() []media.StreamDescriptor { return []media.StreamDescriptor{d.stream} }

// Metadata is always empty: go-mp3 skips ID3 tags without exposing them.
func (d *Demuxer) Metadata() media.Metadata { return nil }

func (d *Demuxer) ReadPacket() (*media.Packet, error) {
	n, err := io.ReadFull(d.dec, d.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		// Rewind to the packet start so a retry stays frame aligned.
		if _, serr := d.dec.Seek(d.pos, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("%w: %w", err, serr)
		}
		return nil, fmt.Errorf("%w", err)
	}

	n -= n % bytesPerFrame
	if n == 0 {
		return nil, io.EOF
	}

	data := make([]byte, n)
	copy(data, d.buf[:n])

	pkt := media.NewPacket(0, data)
	pkt.PTS = d.pos / bytesPerFrame
	pkt.DTS = pkt.PTS
	pkt.Duration = int64(n / bytesPerFrame)
	d.pos += int64(n)

	return pkt, nil
}

// Seek moves to sample ts through go-mp3's byte seek, which decodes from
// the nearest frame boundary.
func (d *Demuxer) Seek(stream int, ts int64) error {
	if stream != 0 {
		return fmt.Errorf("%w: %d", ErrUnknownStream, stream)
	}
	ts = max(0, ts)

	pos, err := d.dec.Seek(ts*bytesPerFrame, io.SeekStart)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	d.pos = pos
	return nil
}

func (d *Demuxer) Close() error {
	d.buf = nil
	return nil
}
