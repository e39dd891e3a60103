// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
	"golang.org/x/sync/errgroup"
)

// probeSize is how much of the input is handed to Format.Probe.
const probeSize = 64

// MediaHandle describes an open container.
type MediaHandle struct {
	FormatName    string
	Duration      time.Duration
	DurationKnown bool
	Metadata      media.Metadata
	Streams       []media.StreamDescriptor
}

type packetResult struct {
	pkt *media.Packet
	err error
}

// PacketSource owns a demuxer and yields the packets of one stream.
type PacketSource struct {
	handle MediaHandle
	demux  codec.Demuxer
	file   io.Closer // set when the source opened the file itself
	stream media.StreamDescriptor
	log    *slog.Logger

	prefetch int
	packets  chan packetResult
	stash    []packetResult // read ahead before a seek that failed
	stop     func()

	closed bool
}

// OpenSource opens a path or file:// URI.
func OpenSource(ctx context.Context, uri string, cfg Config) (*PacketSource, error) {
	path := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		path = u.Path
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	s, err := OpenSourceReader(ctx, f, path, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.file = f
	return s, nil
}

// OpenSourceReader probes r by its first bytes, then by the extension of
// name, and selects the stream to decode.
func OpenSourceReader(ctx context.Context, r io.ReadSeeker, name string, cfg Config) (*PacketSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: no codec registry", ErrOpenFailed)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	header := make([]byte, probeSize)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	format, ok := cfg.Registry.Probe(header[:n], name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	demux, err := format.Open(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, format.Name(), err)
	}

	handle := MediaHandle{
		FormatName: format.Name(),
		Metadata:   demux.Metadata(),
		Streams:    demux.Streams(),
	}

	override := -1
	if cfg.Stream != nil {
		override = *cfg.Stream
	}
	stream, err := SelectStream(handle, override)
	if err != nil {
		demux.Close()
		return nil, err
	}
	handle.Duration, handle.DurationKnown = stream.DurationTime()

	s := &PacketSource{
		handle:   handle,
		demux:    demux,
		stream:   stream,
		log:      log.With("component", "source"),
		prefetch: cfg.Prefetch,
	}
	s.log.Debug("opened", "format", handle.FormatName, "stream", stream.String())

	if s.prefetch > 0 {
		s.startPrefetch()
	}
	return s, nil
}

// SelectStream returns the first audio stream by index, or the stream with
// index override when override >= 0.
func SelectStream(handle MediaHandle, override int) (media.StreamDescriptor, error) {
	if override >= 0 {
		for _, s := range handle.Streams {
			if s.Index != override {
				continue
			}
			if s.Type != media.MediaTypeAudio {
				return media.StreamDescriptor{}, fmt.Errorf("%w: stream %d is %s", ErrUnsupportedFormat, override, s.Type)
			}
			return s, nil
		}
		return media.StreamDescriptor{}, fmt.Errorf("%w: no stream %d", ErrUnsupportedFormat, override)
	}

	best := -1
	for i, s := range handle.Streams {
		if s.Type != media.MediaTypeAudio {
			continue
		}
		if best < 0 || s.Index < handle.Streams[best].Index {
			best = i
		}
	}
	if best < 0 {
		return media.StreamDescriptor{}, fmt.Errorf("%w: no audio stream", ErrUnsupportedFormat)
	}
	return handle.Streams[best], nil
}

func (s *PacketSource) Handle() MediaHandle             { return s.handle }
func (s *PacketSource) Stream() media.StreamDescriptor { return s.stream }

// read returns the next packet of the selected stream straight from the
// demuxer.
func (s *PacketSource) read() (*media.Packet, error) {
	for {
		pkt, err := s.demux.ReadPacket()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
		}
		if pkt.StreamIndex == s.stream.Index {
			return pkt, nil
		}
	}
}

// NextPacket returns the next packet of the selected stream, or io.EOF.
func (s *PacketSource) NextPacket(ctx context.Context) (*media.Packet, error) {
	if s.closed {
		return nil, ErrClosed
	}

	if len(s.stash) > 0 {
		r := s.stash[0]
		s.stash = s.stash[1:]
		return r.pkt, r.err
	}

	if s.packets == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.read()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-s.packets:
		if !ok {
			return nil, io.EOF
		}
		return r.pkt, r.err
	}
}

// startPrefetch reads packets into a channel of s.prefetch entries until
// end of stream or stopPrefetch.
func (s *PacketSource) startPrefetch() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	packets := make(chan packetResult, s.prefetch)
	var unsent *packetResult

	g.Go(func() error {
		defer close(packets)
		for {
			pkt, err := s.read()
			select {
			case packets <- packetResult{pkt, err}:
			case <-ctx.Done():
				unsent = &packetResult{pkt, err}
				return ctx.Err()
			}
			if err == io.EOF {
				return nil
			}
		}
	})

	s.packets = packets
	s.stop = func() {
		cancel()
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("prefetch stopped", "error", err)
		}
		for r := range packets {
			s.stash = append(s.stash, r)
		}
		if unsent != nil {
			s.stash = append(s.stash, *unsent)
		}
	}
}

// stopPrefetch waits for the reader goroutine to exit and keeps the
// packets it had already read in the stash.
func (s *PacketSource) stopPrefetch() {
	if s.packets == nil {
		return
	}
	s.stop()
	s.packets, s.stop = nil, nil
}

// SeekPTS positions the demuxer on a random access point at or before ts,
// expressed in the stream time base.
func (s *PacketSource) SeekPTS(ts int64) error {
	if s.closed {
		return ErrClosed
	}

	s.stopPrefetch()
	err := s.demux.Seek(s.stream.Index, ts)
	if err == nil {
		s.stash = nil
	}
	if s.prefetch > 0 {
		s.startPrefetch()
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrSeekFailed, err)
	}
	s.log.Debug("seek", "ts", ts)
	return nil
}

func (s *PacketSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.stopPrefetch()
	s.stash = nil

	err := s.demux.Close()
	if s.file != nil {
		err = errors.Join(err, s.file.Close())
	}
	return err
}
