// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"fmt"
	"io"

	gowav "github.com/go-audio/wav"
	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/formats/pcm"
	"github.com/ik5/mediapipe/media"
)

// WAVE format tags from the fmt chunk.
const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xfffe
)

// PacketFrames is the number of sample frames per packet.
const PacketFrames = 1024

// Format probes and opens RIFF/WAVE files.
type Format struct{}

func (Format) Name() string         { return "wav" }
func (Format) Extensions() []string { return []string{"wav", "wave"} }

func (Format) Probe(header []byte) bool {
	return len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE"))
}

func (Format) Open(r io.ReadSeeker) (codec.Demuxer, error) {
	return Open(r)
}

// Demuxer reads raw sample frames out of the data chunk. Packets are
// timestamped in samples.
type Demuxer struct {
	r          io.ReadSeeker
	stream     media.StreamDescriptor
	metadata   media.Metadata
	dataStart  int64
	blockAlign int
	frames     int64 // total sample frames in the data chunk
	pos        int64 // next frame to read
	buf        []byte
}

// Open parses the headers of r and positions it on the first sample.
func Open(r io.ReadSeeker) (*Demuxer, error) {
	// First pass: headers and LIST/INFO tags, which may sit after the data.
	probe := gowav.NewDecoder(r)
	if !probe.IsValidFile() {
		return nil, ErrNotWavFile
	}
	probe.ReadMetadata()
	metadata := convertMetadata(probe.Metadata)

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	dec := gowav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavChunks, err)
	}

	dataStart, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	codecID, err := codecFor(int(dec.WavAudioFormat), int(dec.BitDepth))
	if err != nil {
		return nil, err
	}
	sampleFormat, _ := pcm.SampleFormat(codecID)

	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	blockAlign := channels * int(dec.BitDepth) / 8
	if channels == 0 || rate == 0 || blockAlign == 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedWavLayout, channels, rate)
	}
	frames := dec.PCMLen() / int64(blockAlign)

	return &Demuxer{
		r: r,
		stream: media.StreamDescriptor{
			Index:        0,
			Type:         media.MediaTypeAudio,
			CodecID:      codecID,
			TimeBase:     media.SampleTimeBase(rate),
			SampleFormat: sampleFormat,
			SampleRate:   rate,
			Layout:       media.DefaultLayout(channels),
			Duration:     frames,
			Metadata:     metadata,
		},
		metadata:   metadata,
		dataStart:  dataStart,
		blockAlign: blockAlign,
		frames:     frames,
		buf:        make([]byte, PacketFrames*blockAlign),
	}, nil
}

func codecFor(tag, bitDepth int) (string, error) {
	switch tag {
	case formatPCM, formatExtensible:
		switch bitDepth {
		case 8:
			return codec.CodecPCMU8, nil
		case 16:
			return codec.CodecPCMS16LE, nil
		case 24:
			return codec.CodecPCMS24LE, nil
		case 32:
			return codec.CodecPCMS32LE, nil
		}
	case formatIEEEFloat:
		switch bitDepth {
		case 32:
			return codec.CodecPCMF32LE, nil
		case 64:
			return codec.CodecPCMF64LE, nil
		}
	}
	return "", fmt.Errorf("%w: format tag %#x with %d bits", ErrUnsupportedWavLayout, tag, bitDepth)
}

func convertMetadata(md *gowav.Metadata) media.Metadata {
	var out media.Metadata
	if md == nil {
		return out
	}
	out.Add("title", md.Title)
	out.Add("artist", md.Artist)
	out.Add("album", md.Product)
	out.Add("track", md.TrackNbr)
	out.Add("genre", md.Genre)
	out.Add("date", md.CreationDate)
	out.Add("comment", md.Comments)
	out.Add("copyright", md.Copyright)
	out.Add("encoder", md.Software)
	out.Add("engineer", md.Engineer)
	out.Add("keywords", md.Keywords)
	out.Add("subject", md.Subject)
	out.Add("source", md.Source)
	return out
}

func (d *Demuxer) Streams() []media.StreamDescriptor { return []media.StreamDescriptor{d.stream} }
func (d *Demuxer) Metadata() media.Metadata          { return d.metadata }

func (d *Demuxer) ReadPacket() (*media.Packet, error) {
	remaining := d.frames - d.pos
	if remaining <= 0 {
		return nil, io.EOF
	}

	want := int(min(int64(PacketFrames), remaining)) * d.blockAlign
	n, err := io.ReadFull(d.r, d.buf[:want])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		// Rewind to the packet start so a retry stays frame aligned.
		if _, serr := d.r.Seek(d.dataStart+d.pos*int64(d.blockAlign), io.SeekStart); serr != nil {
			return nil, fmt.Errorf("%w: %w", err, serr)
		}
		return nil, fmt.Errorf("%w", err)
	}

	// A truncated file ends on the last whole frame.
	frames := n / d.blockAlign
	if frames == 0 {
		d.pos = d.frames
		return nil, io.EOF
	}

	data := make([]byte, frames*d.blockAlign)
	copy(data, d.buf[:len(data)])

	pkt := media.NewPacket(0, data)
	pkt.PTS = d.pos
	pkt.DTS = d.pos
	pkt.Duration = int64(frames)

	d.pos += int64(frames)
	if frames*d.blockAlign < want {
		d.pos = d.frames
	}

	return pkt, nil
}

// Seek is exact: every sample frame is a random-access point.
func (d *Demuxer) Seek(stream int, ts int64) error {
	if stream != 0 {
		return fmt.Errorf("%w: %d", ErrUnknownStream, stream)
	}
	ts = max(0, min(ts, d.frames))
	if _, err := d.r.Seek(d.dataStart+ts*int64(d.blockAlign), io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}
	d.pos = ts
	return nil
}

func (d *Demuxer) Close() error {
	d.buf = nil
	return nil
}
