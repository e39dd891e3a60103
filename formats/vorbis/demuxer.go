// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
	"github.com/jfreymuth/oggvorbis"
)

const (
	headerPackets = 3

	// seekPreroll is how far before the target a seek lands, so that the
	// first decodable packet starts before it. Vorbis blocks are at most
	// 8192 samples and a packet's output begins half a block in.
	seekPreroll = 4096
)

// Format probes and opens Ogg Vorbis files.
type Format struct{}

func (Format) Name() string         { return "ogg" }
func (Format) Extensions() []string { return []string{"ogg", "oga"} }

func (Format) Probe(header []byte) bool {
	return bytes.HasPrefix(header, []byte("OggS"))
}

func (Format) Open(r io.ReadSeeker) (codec.Demuxer, error) {
	return Open(r)
}

// indexEntry is a page on which at least one packet ends.
type indexEntry struct {
	offset  int64
	granule int64
}

// Demuxer splits the first logical Vorbis stream of an Ogg file into
// packets. The page granule position is attached as EndPTS to the last
// packet completed on each page; everything else carries no timestamp.
type Demuxer struct {
	pages  *pageReader
	serial uint32
	stream media.StreamDescriptor

	queue    []*media.Packet
	partial  []byte
	skipping bool // inside a packet whose start was not read
	headers  int  // header packets still to discard
	resync   bool // drop packets completed on the next page

	index []indexEntry
}

// Open reads the stream parameters, duration and comments through
// oggvorbis, then rewinds and splits the stream into packets itself.
func Open(r io.ReadSeeker) (*Demuxer, error) {
	info, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotVorbisFile, err)
	}

	stream := media.StreamDescriptor{
		Index:        0,
		Type:         media.MediaTypeAudio,
		CodecID:      codec.CodecVorbis,
		TimeBase:     media.SampleTimeBase(info.SampleRate()),
		SampleFormat: media.SampleFormatF32,
		SampleRate:   info.SampleRate(),
		Layout:       media.DefaultLayout(info.Channels()),
		Duration:     media.NoPTS,
	}

	// Length seeks to the last page; zero means it could not tell.
	if n := info.Length(); n > 0 {
		stream.Duration = n
	}

	comments := info.CommentHeader()
	stream.Metadata.Add("ENCODER", comments.Vendor)
	for _, c := range comments.Comments {
		key, value, ok := strings.Cut(c, "=")
		if ok {
			stream.Metadata.Add(key, value)
		}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return newDemuxer(r, stream)
}

// newDemuxer collects the header packets into stream.Extradata and leaves
// the demuxer on the first audio packet.
func newDemuxer(r io.ReadSeeker, stream media.StreamDescriptor) (*Demuxer, error) {
	d := &Demuxer{pages: newPageReader(r), stream: stream}

	first, err := d.pages.next()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotVorbisFile, err)
	}
	d.serial = first.serial
	d.assemble(first)

	for len(d.queue) < headerPackets {
		_, err := d.readPage()
		if err == io.EOF {
			return nil, ErrMissingHeaders
		}
		if err != nil && !errors.Is(err, ErrBadPage) {
			return nil, err
		}
	}

	for i, pkt := range d.queue[:headerPackets] {
		if !isHeader(pkt.Data, byte(2*i+1)) {
			return nil, fmt.Errorf("%w: packet %d is not a Vorbis header", ErrNotVorbisFile, i)
		}
		d.stream.Extradata = append(d.stream.Extradata, pkt.Data)
	}
	d.queue = d.queue[headerPackets:]

	return d, nil
}

func isHeader(data []byte, kind byte) bool {
	return len(data) >= 7 && data[0] == kind && string(data[1:7]) == "vorbis"
}

func (d *Demuxer) Streams() []media.StreamDescriptor { return []media.StreamDescriptor{d.stream} }

// Metadata returns the Vorbis comments; Ogg has no container level tags.
func (d *Demuxer) Metadata() media.Metadata { return d.stream.Metadata }

func (d *Demuxer) ReadPacket() (*media.Packet, error) {
	for len(d.queue) == 0 {
		_, err := d.readPage()
		if err != nil && !errors.Is(err, ErrBadPage) {
			return nil, err
		}
	}

	pkt := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return pkt, nil
}

// readPage reads one page of the selected stream into the queue. A page
// with a bad checksum is dropped along with the packet spanning it.
func (d *Demuxer) readPage() (*page, error) {
	for {
		pg, err := d.pages.next()
		if errors.Is(err, ErrBadPage) {
			d.partial = nil
			d.skipping = true
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		if pg.serial != d.serial {
			continue
		}
		d.assemble(pg)
		return pg, nil
	}
}

// assemble appends the packets completed on pg to the queue.
func (d *Demuxer) assemble(pg *page) {
	if pg.flags&flagContinued == 0 {
		d.partial = nil
		d.skipping = false
	} else if d.partial == nil {
		d.skipping = true
	}

	var done []*media.Packet
	off := 0
	for _, s := range pg.segments {
		seg := pg.payload[off : off+int(s)]
		off += int(s)

		if !d.skipping {
			d.partial = append(d.partial, seg...)
		}
		if s == 255 {
			continue
		}

		if d.skipping {
			d.skipping = false
			continue
		}
		data := d.partial
		if data == nil {
			data = []byte{}
		}
		d.partial = nil
		done = append(done, media.NewPacket(0, data))
	}

	if d.resync {
		d.resync = false
		return
	}

	if len(done) > 0 && pg.granule != noGranule {
		done[len(done)-1].EndPTS = pg.granule
	}

	for _, pkt := range done {
		if d.headers > 0 {
			d.headers--
			continue
		}
		d.queue = append(d.queue, pkt)
	}
}

// Seek positions the demuxer on the last page that ends at least
// seekPreroll samples before ts. Packets completed on that page are dropped;
// the packet continuing from it is the first one returned.
func (d *Demuxer) Seek(stream int, ts int64) error {
	if stream != 0 {
		return fmt.Errorf("%w: %d", ErrUnknownStream, stream)
	}

	if d.index == nil {
		resume := d.pages.pos
		if err := d.buildIndex(); err != nil {
			if serr := d.pages.seek(resume); serr != nil {
				return errors.Join(err, serr)
			}
			return err
		}
	}

	target := ts - seekPreroll
	i := sort.Search(len(d.index), func(i int) bool { return d.index[i].granule > target })

	d.queue = nil
	d.partial = nil
	d.skipping = false

	if i == 0 {
		d.headers = headerPackets
		return d.pages.seek(0)
	}

	d.resync = true
	return d.pages.seek(d.index[i-1].offset)
}

// buildIndex scans every page header of the file. The audio pages are the
// ones past the headers with a granule position set.
func (d *Demuxer) buildIndex() error {
	if err := d.pages.seek(0); err != nil {
		return err
	}

	index := []indexEntry{}
	for {
		pg, err := d.pages.next()
		if err == io.EOF {
			break
		}
		if err != nil && !errors.Is(err, ErrBadPage) {
			return err
		}
		if pg == nil || pg.serial != d.serial || pg.granule <= 0 {
			continue
		}
		if n := len(index); n > 0 && index[n-1].granule >= pg.granule {
			continue
		}
		index = append(index, indexEntry{offset: pg.offset, granule: pg.granule})
	}

	d.index = index
	return nil
}

func (d *Demuxer) Close() error {
	d.queue = nil
	d.partial = nil
	return nil
}
