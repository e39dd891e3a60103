// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/mediapipe/media"
)

type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateDraining
	StateSeeking
	StateEnded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateSeeking:
		return "seeking"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type seekRequest struct {
	target time.Duration
	done   chan error // buffered, receives exactly one result
}

// trimState tracks the frames dropped after a seek until the first frame
// reaching target, in the stream time base.
type trimState struct {
	target    int64
	discarded int
}

// Session pulls fixed-format PCM chunks out of one audio stream. NextChunk,
// Seek and Close may be called from different goroutines; a Seek or Close
// issued while NextChunk is draining the codec interrupts the drain.
type Session struct {
	mu  sync.Mutex
	cfg Config
	log *slog.Logger

	source  *PacketSource
	decoder *FrameDecoder
	stage   *ResampleStage
	outTB   media.Rational

	state    atomic.Int32
	seekReq  atomic.Pointer[seekRequest]
	closed   atomic.Bool
	position atomic.Int64 // PTS of the last delivered chunk in outTB

	queue         []*media.PCMChunk
	trim          *trimState
	discontinuity bool
	failure       error
	released      bool
}

// Open opens a path or file:// URI and prepares a session for its first
// audio stream.
func Open(ctx context.Context, uri string, opts ...Option) (*Session, error) {
	cfg := NewConfig(opts...)
	src, err := OpenSource(ctx, uri, cfg)
	if err != nil {
		return nil, err
	}
	return NewSession(src, cfg)
}

// OpenReader is Open for an already open input. name is only used to guess
// the format from its extension when probing by content fails.
func OpenReader(ctx context.Context, r io.ReadSeeker, name string, opts ...Option) (*Session, error) {
	cfg := NewConfig(opts...)
	src, err := OpenSourceReader(ctx, r, name, cfg)
	if err != nil {
		return nil, err
	}
	return NewSession(src, cfg)
}

// NewSession takes ownership of src and builds the decoder and resample
// stage for its stream. src is closed when NewSession fails.
func NewSession(src *PacketSource, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = DefaultChunkSamples
	}
	if cfg.MaxDiscardFrames <= 0 {
		cfg.MaxDiscardFrames = DefaultMaxDiscardFrames
	}

	s := &Session{
		cfg:    cfg,
		log:    cfg.Logger.With("component", "session"),
		source: src,
	}
	if err := s.build(); err != nil {
		s.release()
		return nil, err
	}

	s.log.Debug("session ready", "stream", src.Stream().String(), "output", s.stage.Output().String())
	return s, nil
}

func (s *Session) build() error {
	if s.cfg.Registry == nil {
		return fmt.Errorf("%w: no codec registry", ErrOpenFailed)
	}
	stream := s.source.Stream()

	dec, err := NewFrameDecoder(stream, s.cfg.Registry, s.cfg.Logger)
	if err != nil {
		return err
	}
	s.decoder = dec

	factory, ok := s.cfg.Registry.Resampler()
	if !ok {
		return fmt.Errorf("%w: no resampler registered", ErrConfigMismatch)
	}

	out := resolve(s.cfg.Output, stream)
	stage, err := NewResampleStage(factory, out, stream.TimeBase, s.cfg.ChunkSamples, s.cfg.Logger)
	if err != nil {
		return err
	}
	s.stage = stage
	s.outTB = media.SampleTimeBase(out.SampleRate)

	// Codecs that only learn their format from the first frame are
	// configured on demand by Push.
	if in := stream.AudioFormat(); in.Validate() == nil {
		if _, err := stage.Configure(in, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Handle() MediaHandle             { return s.source.Handle() }
func (s *Session) Stream() media.StreamDescriptor  { return s.source.Stream() }
func (s *Session) OutputFormat() media.AudioFormat { return s.stage.Output() }
func (s *Session) State() State                    { return State(s.state.Load()) }

// Position is the start of the last delivered chunk, or the seek target
// after a successful seek.
func (s *Session) Position() time.Duration {
	return media.PTSToDuration(s.position.Load(), s.outTB)
}

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// NextChunk returns the next PCM chunk, io.EOF after the last one, or an
// error. ErrReadFailed and context errors leave the session usable; other
// errors are terminal and are returned again by every later call.
func (s *Session) NextChunk(ctx context.Context) (*media.PCMChunk, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed.Load() || s.released && s.State() != StateFailed {
			return nil, ErrClosed
		}

		if req := s.seekReq.Swap(nil); req != nil {
			req.done <- s.applySeek(req.target)
		}

		if len(s.queue) > 0 {
			c := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			if s.discontinuity {
				c.Discontinuity = true
				s.discontinuity = false
			}
			s.position.Store(c.PTS)
			return c, nil
		}

		switch s.State() {
		case StateFailed:
			return nil, s.failure
		case StateEnded:
			return nil, io.EOF
		case StateDraining:
			s.setState(StateEnded)
			s.log.Debug("end of stream")
			return nil, io.EOF
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.step(ctx); err != nil {
			return nil, err
		}
	}
}

// step moves one frame or one packet through the pipeline.
func (s *Session) step(ctx context.Context) error {
	frame, err := s.decoder.NextFrame()
	switch {
	case err == nil:
		if err := s.push(frame); err != nil {
			return s.fail(err)
		}
		return nil
	case err == io.EOF:
		return s.drain()
	case !errors.Is(err, ErrNeedMorePackets):
		return s.fail(err)
	}

	pkt, err := s.source.NextPacket(ctx)
	switch {
	case err == io.EOF:
		return s.drain()
	case err != nil:
		return err
	}

	if s.State() == StateIdle {
		s.setState(StateStreaming)
	}

	if err := s.decoder.Feed(pkt); err != nil && !errors.Is(err, ErrCorrupt) {
		return s.fail(err)
	}
	return nil
}

// drain runs the end of stream sequence: decoder drain, then resampler
// flush. A pending seek or close stops it between frames.
func (s *Session) drain() error {
	s.setState(StateDraining)
	s.log.Debug("end of packets, draining")

	err := s.decoder.FlushAndDrain(func(f *media.Frame) error {
		if s.aborted() {
			return errAborted
		}
		return s.push(f)
	})
	switch {
	case errors.Is(err, errAborted):
		s.log.Debug("drain interrupted")
		return nil
	case err != nil:
		return s.fail(err)
	}

	if s.aborted() {
		return nil
	}
	chunks, err := s.stage.Flush()
	if err != nil {
		return s.fail(err)
	}
	s.queue = append(s.queue, chunks...)
	return nil
}

func (s *Session) aborted() bool {
	return s.closed.Load() || s.seekReq.Load() != nil
}

// push trims frame against a pending seek target and hands the rest to the
// resample stage.
func (s *Session) push(frame *media.Frame) error {
	if s.trim != nil && !s.trimFrame(frame) {
		return nil
	}
	chunks, err := s.stage.Push(frame)
	s.queue = append(s.queue, chunks...)
	return err
}

// trimFrame reports whether any of frame is left after trimming. Trimming
// ends at the first frame reaching the target, or after MaxDiscardFrames
// whole frames so a container that seeks badly cannot stall the session.
func (s *Session) trimFrame(frame *media.Frame) bool {
	t := s.trim
	tb := s.source.Stream().TimeBase

	if frame.PTS == media.NoPTS {
		s.trim = nil
		return true
	}

	if frame.PTS+frame.Duration(tb) <= t.target {
		t.discarded++
		if t.discarded <= s.cfg.MaxDiscardFrames {
			return false
		}
		s.log.Warn("seek target not reached, emitting early audio",
			"target", t.target, "pts", frame.PTS, "discarded", t.discarded)
		s.trim = nil
		return true
	}

	if frame.PTS < t.target {
		n := media.Rescale(t.target-frame.PTS, tb, media.SampleTimeBase(frame.Format.SampleRate), media.RoundNearInf)
		frame.TrimFront(int(n), tb)
	}
	s.trim = nil
	return frame.Samples > 0
}

// Seek moves playback to target. When another goroutine is inside NextChunk
// the request is queued and applied by it; a later Seek supersedes a queued
// one, which then returns nil.
func (s *Session) Seek(ctx context.Context, target time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}

	req := &seekRequest{target: target, done: make(chan error, 1)}
	if old := s.seekReq.Swap(req); old != nil {
		old.done <- nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seekReq.CompareAndSwap(req, nil) {
		return <-req.done
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.applySeek(target)
}

// applySeek runs the seek sequence: resampler flushed and discarded,
// decoder reset, source repositioned. On failure the previous state and
// queued chunks are kept.
func (s *Session) applySeek(target time.Duration) error {
	switch {
	case s.closed.Load():
		return ErrClosed
	case s.State() == StateFailed:
		return s.failure
	case s.released:
		return ErrClosed
	}

	prev, queued := s.State(), s.queue
	s.setState(StateSeeking)
	s.queue = nil

	s.stage.Reset()
	s.decoder.Reset()

	tb := s.source.Stream().TimeBase
	ts := media.DurationToPTS(max(target, 0), tb, media.RoundDown)
	if err := s.source.SeekPTS(ts); err != nil {
		s.queue = queued
		s.discontinuity = true
		s.setState(prev)
		s.log.Warn("seek failed", "target", target, "error", err)
		return err
	}

	s.trim = &trimState{target: ts}
	s.discontinuity = true
	s.position.Store(media.Rescale(ts, tb, s.outTB, media.RoundNearInf))
	s.setState(StateStreaming)
	s.log.Debug("seek", "target", target, "ts", ts)
	return nil
}

// fail records a terminal error and releases every component.
func (s *Session) fail(err error) error {
	if s.State() == StateFailed {
		return s.failure
	}
	s.failure = err
	s.queue = nil
	s.setState(StateFailed)
	s.log.Error("pipeline failed", "error", err)
	if rerr := s.release(); rerr != nil {
		s.log.Warn("releasing after failure", "error", rerr)
	}
	return err
}

func (s *Session) release() error {
	if s.released {
		return nil
	}
	s.released = true

	var err error
	if s.stage != nil {
		err = errors.Join(err, s.stage.Close())
	}
	if s.decoder != nil {
		err = errors.Join(err, s.decoder.Close())
	}
	return errors.Join(err, s.source.Close())
}

// Close releases the session. It is safe from any state and idempotent; a
// queued seek returns ErrClosed.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req := s.seekReq.Swap(nil); req != nil {
		req.done <- ErrClosed
	}
	s.queue = nil
	s.log.Debug("closed")
	return s.release()
}
