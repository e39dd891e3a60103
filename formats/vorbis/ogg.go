// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	pageHeaderSize = 27

	flagContinued = 0x01

	// noGranule marks a page on which no packet ends.
	noGranule = -1
)

// page is one Ogg page. Payload holds the concatenated segments.
type page struct {
	offset   int64
	flags    byte
	granule  int64
	serial   uint32
	segments []byte
	payload  []byte
}

// pageReader reads Ogg pages from a seekable input and keeps track of the
// byte offset of every page.
type pageReader struct {
	r   io.ReadSeeker
	br  *bufio.Reader
	pos int64
}

func newPageReader(r io.ReadSeeker) *pageReader {
	return &pageReader{r: r, br: bufio.NewReader(r)}
}

func (p *pageReader) seek(offset int64) error {
	if _, err := p.r.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}
	p.br.Reset(p.r)
	p.pos = offset
	return nil
}

func (p *pageReader) read(b []byte) error {
	n, err := io.ReadFull(p.br, b)
	p.pos += int64(n)
	if err == io.ErrUnexpectedEOF {
		return io.EOF
	}
	return err
}

// next returns the next page, skipping garbage up to the capture pattern.
// A page whose checksum does not match is returned together with
// ErrBadPage so the caller can drop any packet that spans it.
func (p *pageReader) next() (*page, error) {
	header := make([]byte, pageHeaderSize)
	if err := p.read(header[:4]); err != nil {
		return nil, err
	}
	for string(header[:4]) != "OggS" {
		b, err := p.br.ReadByte()
		if err != nil {
			return nil, err
		}
		p.pos++
		copy(header, header[1:4])
		header[3] = b
	}
	offset := p.pos - 4

	if err := p.read(header[4:]); err != nil {
		return nil, err
	}
	if header[4] != 0 {
		return nil, fmt.Errorf("%w: stream structure version %d", ErrBadPage, header[4])
	}

	segments := make([]byte, header[26])
	if err := p.read(segments); err != nil {
		return nil, err
	}
	size := 0
	for _, s := range segments {
		size += int(s)
	}
	payload := make([]byte, size)
	if err := p.read(payload); err != nil {
		return nil, err
	}

	pg := &page{
		offset:   offset,
		flags:    header[5],
		granule:  int64(binary.LittleEndian.Uint64(header[6:14])),
		serial:   binary.LittleEndian.Uint32(header[14:18]),
		segments: segments,
		payload:  payload,
	}

	want := binary.LittleEndian.Uint32(header[22:26])
	clear(header[22:26])
	crc := pageCRC(0, header)
	crc = pageCRC(crc, segments)
	crc = pageCRC(crc, payload)
	if crc != want {
		return pg, fmt.Errorf("%w: checksum mismatch at offset %d", ErrBadPage, offset)
	}

	return pg, nil
}

var crcTable = func() (t [256]uint32) {
	for i := range t {
		r := uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

// pageCRC is the Ogg checksum: CRC-32 with polynomial 0x04c11db7, no bit
// reflection and no final xor.
func pageCRC(crc uint32, b []byte) uint32 {
	for _, v := range b {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^v]
	}
	return crc
}
