// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/mediapipe/media"
)

// Writer streams PCM chunks into a WAV file through the go-audio encoder.
// 16 and 32-bit integer chunks keep their depth; everything else is written
// as 16-bit.
type Writer struct {
	enc      *gowav.Encoder
	format   media.AudioFormat
	bitDepth int
	frames   int
}

// NewWriter starts a WAV file on w. The header is patched on Close, so w
// must be seekable.
func NewWriter(w io.WriteSeeker, format media.AudioFormat) (*Writer, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavLayout, err)
	}

	bitDepth := 16
	if format.SampleFormat.Packed() == media.SampleFormatS32 {
		bitDepth = 32
	}

	return &Writer{
		enc:      gowav.NewEncoder(w, format.SampleRate, bitDepth, format.Channels(), formatPCM),
		format:   format,
		bitDepth: bitDepth,
	}, nil
}

// SetMetadata records tags written as a LIST/INFO chunk on Close. An empty
// md leaves the file without one.
func (w *Writer) SetMetadata(md media.Metadata) {
	if len(md) == 0 {
		w.enc.Metadata = nil
		return
	}
	get := func(key string) string {
		v, _ := md.Get(key)
		return v
	}
	w.enc.Metadata = &gowav.Metadata{
		Title:        get("title"),
		Artist:       get("artist"),
		Product:      get("album"),
		TrackNbr:     get("track"),
		Genre:        get("genre"),
		CreationDate: get("date"),
		Comments:     get("comment"),
		Copyright:    get("copyright"),
		Software:     get("encoder"),
	}
}

func (w *Writer) WriteChunk(c *media.PCMChunk) error {
	if c.Format.SampleRate != w.format.SampleRate || c.Format.Channels() != w.format.Channels() {
		return fmt.Errorf("%w: chunk is %s, file is %s", ErrUnsupportedWavLayout, c.Format, w.format)
	}

	buf := c.IntBuffer()
	w.rescale(buf)

	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.frames += c.Samples
	return nil
}

// rescale moves buf to the writer's bit depth.
func (w *Writer) rescale(buf *goaudio.IntBuffer) {
	shift := w.bitDepth - buf.SourceBitDepth
	switch {
	case shift > 0:
		for i, v := range buf.Data {
			buf.Data[i] = v << shift
		}
	case shift < 0:
		for i, v := range buf.Data {
			buf.Data[i] = v >> -shift
		}
	}
	buf.SourceBitDepth = w.bitDepth
}

// Frames is the number of sample frames written so far.
func (w *Writer) Frames() int { return w.frames }

func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}
