// SPDX-License-Identifier: EPL-2.0

// Command mediapipe decodes an audio file, converts it to the requested
// format and writes the result as WAV.
//
//	mediapipe [flags] <input> <output.wav|->
//
// Flag defaults can also be set through MEDIAPIPE_RATE, MEDIAPIPE_CHANNELS,
// MEDIAPIPE_FORMAT and MEDIAPIPE_PREFETCH. Set DEBUG for verbose logs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ik5/mediapipe"
	"github.com/ik5/mediapipe/formats/wav"
	"github.com/ik5/mediapipe/media"
	"github.com/ik5/mediapipe/pipeline"
)

var version = "dev"

type options struct {
	rate     int
	channels int
	format   string
	stream   int
	prefetch int
	seek     time.Duration
}

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var o options
	flag.IntVar(&o.rate, "rate", envInt("MEDIAPIPE_RATE", 0), "output sample rate in Hz (0 keeps the stream rate)")
	flag.IntVar(&o.channels, "channels", envInt("MEDIAPIPE_CHANNELS", 0), "output channel count (0 keeps the stream layout)")
	flag.StringVar(&o.format, "format", envOr("MEDIAPIPE_FORMAT", "s16"), "output sample format (s16 or s32)")
	flag.IntVar(&o.stream, "stream", -1, "audio stream index (-1 picks the first audio stream)")
	flag.IntVar(&o.prefetch, "prefetch", envInt("MEDIAPIPE_PREFETCH", 0), "packets to read ahead in the background")
	flag.DurationVar(&o.seek, "seek", 0, "start position")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <input> <output.wav|->\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	slog.Debug("mediapipe starting", "version", version)

	if err := run(ctx, o, flag.Arg(0), flag.Arg(1)); err != nil {
		slog.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, in, out string) error {
	sf, err := media.ParseSampleFormat(o.format)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithSampleFormat(sf),
		pipeline.WithSampleRate(o.rate),
		pipeline.WithLayout(media.DefaultLayout(o.channels)),
		pipeline.WithStream(o.stream),
		pipeline.WithPrefetch(o.prefetch),
		pipeline.WithLogger(slog.Default()),
	}

	s, err := mediapipe.Open(ctx, in, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	describe(s)

	if o.seek > 0 {
		if err := s.Seek(ctx, o.seek); err != nil {
			return fmt.Errorf("seek to %s: %w", o.seek, err)
		}
	}

	var frames int
	if out == "-" {
		frames, err = writeStdout(ctx, s)
	} else {
		frames, err = writeFile(ctx, s, out)
	}
	if err != nil {
		return err
	}

	format := s.OutputFormat()
	slog.Info("conversion complete",
		"output", out,
		"format", format,
		"frames", frames,
		"duration", time.Duration(frames)*time.Second/time.Duration(format.SampleRate),
	)
	return nil
}

func describe(s *pipeline.Session) {
	h := s.Handle()
	st := s.Stream()

	attrs := []any{
		"container", h.FormatName,
		"streams", len(h.Streams),
		"stream", st.Index,
		"codec", st.CodecID,
		"input", st.AudioFormat(),
		"output", s.OutputFormat(),
	}
	if h.DurationKnown {
		attrs = append(attrs, "duration", h.Duration)
	}
	for _, key := range []string{"title", "artist", "album"} {
		if v, ok := h.Metadata.Get(key); ok {
			attrs = append(attrs, key, v)
		}
	}
	slog.Info("input opened", attrs...)
}

func writeFile(ctx context.Context, s *pipeline.Session, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w, err := wav.NewWriter(f, s.OutputFormat())
	if err != nil {
		return 0, err
	}
	w.SetMetadata(s.Handle().Metadata)

	for {
		c, err := s.NextChunk(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return w.Frames(), err
		}
		if c.Discontinuity {
			slog.Debug("discontinuity", "pts", c.Time())
		}
		if err := w.WriteChunk(c); err != nil {
			return w.Frames(), err
		}
	}

	if err := w.Close(); err != nil {
		return w.Frames(), err
	}
	return w.Frames(), f.Close()
}

// writeStdout buffers the whole output since a pipe cannot be seeked to
// patch the header.
func writeStdout(ctx context.Context, s *pipeline.Session) (int, error) {
	chunks, err := mediapipe.ReadAll(ctx, s)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		format := s.OutputFormat()
		return 0, wav.WriteWAV16(os.Stdout, format.SampleRate, format.Channels(), nil)
	}

	if err := wav.WriteChunks16(os.Stdout, chunks); err != nil {
		return 0, err
	}

	var frames int
	for _, c := range chunks {
		frames += c.Samples
	}
	return frames, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(envOr(key, strconv.Itoa(fallback)))
	if err != nil {
		slog.Warn("ignoring invalid environment value", "key", key, "error", err)
		return fallback
	}
	return v
}
