// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"log/slog"

	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/media"
)

const (
	DefaultChunkSamples     = 4096
	DefaultMaxDiscardFrames = 256
)

// Config holds the session settings. Zero fields of Output are filled from
// the selected stream, so an empty Config decodes to the native format.
type Config struct {
	Output media.AudioFormat
	// Stream overrides automatic stream selection. nil picks the audio
	// stream with the lowest index.
	Stream *int
	// ChunkSamples caps the samples per channel in one PCMChunk.
	ChunkSamples int
	// MaxDiscardFrames bounds how many whole frames are dropped while
	// trimming to a seek target.
	MaxDiscardFrames int
	// Prefetch is the number of packets read ahead on a separate
	// goroutine; 0 reads on the caller's goroutine.
	Prefetch int
	Registry *codec.Registry
	Logger   *slog.Logger
}

type Option func(*Config)

func NewConfig(opts ...Option) Config {
	cfg := Config{
		ChunkSamples:     DefaultChunkSamples,
		MaxDiscardFrames: DefaultMaxDiscardFrames,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = DefaultChunkSamples
	}
	if cfg.MaxDiscardFrames <= 0 {
		cfg.MaxDiscardFrames = DefaultMaxDiscardFrames
	}
	return cfg
}

// WithOutputFormat sets the whole output format.
func WithOutputFormat(f media.AudioFormat) Option {
	return func(c *Config) { c.Output = f }
}

func WithSampleRate(rate int) Option {
	return func(c *Config) { c.Output.SampleRate = rate }
}

func WithLayout(layout media.ChannelLayout) Option {
	return func(c *Config) { c.Output.Layout = layout }
}

func WithSampleFormat(f media.SampleFormat) Option {
	return func(c *Config) { c.Output.SampleFormat = f }
}

// WithStream selects the stream with the given index instead of the first
// audio stream. A negative index restores automatic selection.
func WithStream(index int) Option {
	return func(c *Config) {
		if index < 0 {
			c.Stream = nil
			return
		}
		c.Stream = &index
	}
}

func WithChunkSamples(n int) Option {
	return func(c *Config) { c.ChunkSamples = n }
}

func WithMaxDiscardFrames(n int) Option {
	return func(c *Config) { c.MaxDiscardFrames = n }
}

func WithPrefetch(packets int) Option {
	return func(c *Config) { c.Prefetch = packets }
}

func WithRegistry(reg *codec.Registry) Option {
	return func(c *Config) { c.Registry = reg }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// resolve fills the zero fields of out from the stream.
func resolve(out media.AudioFormat, stream media.StreamDescriptor) media.AudioFormat {
	if out.SampleFormat == media.SampleFormatNone {
		out.SampleFormat = stream.SampleFormat
	}
	if out.SampleRate == 0 {
		out.SampleRate = stream.SampleRate
	}
	if out.Layout == 0 {
		out.Layout = stream.Layout
	}
	return out
}
