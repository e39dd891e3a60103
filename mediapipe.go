// SPDX-License-Identifier: EPL-2.0

package mediapipe

import (
	"context"
	"io"

	"github.com/ik5/mediapipe/formats"
	"github.com/ik5/mediapipe/media"
	"github.com/ik5/mediapipe/pipeline"
)

// Open opens a path or file:// URI with every built-in format. Options
// given by the caller win over the defaults, including the registry.
func Open(ctx context.Context, uri string, opts ...pipeline.Option) (*pipeline.Session, error) {
	return pipeline.Open(ctx, uri, withDefaults(opts)...)
}

// OpenReader is Open for an input that is already open. name is used to
// guess the format from its extension when the content is not recognised.
func OpenReader(ctx context.Context, r io.ReadSeeker, name string, opts ...pipeline.Option) (*pipeline.Session, error) {
	return pipeline.OpenReader(ctx, r, name, withDefaults(opts)...)
}

func withDefaults(opts []pipeline.Option) []pipeline.Option {
	return append([]pipeline.Option{pipeline.WithRegistry(formats.NewRegistry())}, opts...)
}

// ReadAll reads chunks until the end of the stream.
func ReadAll(ctx context.Context, s *pipeline.Session) ([]*media.PCMChunk, error) {
	var chunks []*media.PCMChunk
	for {
		c, err := s.NextChunk(ctx)
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
}
