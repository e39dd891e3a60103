// SPDX-License-Identifier: EPL-2.0

package codec

import (
	"path/filepath"
	"strings"
	"sync"
)

// Registry holds the formats, decoders and resampler known to a pipeline.
// Formats are probed in registration order.
type Registry struct {
	formats   []Format
	decoders  map[string]DecoderFactory
	resampler ResamplerFactory

	mtx *sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]DecoderFactory),
		mtx:      &sync.RWMutex{},
	}
}

// RegisterFormat adds f to the probe list. A format with the same name is
// replaced in place.
func (r *Registry) RegisterFormat(f Format) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for i, existing := range r.formats {
		if existing.Name() == f.Name() {
			r.formats[i] = f
			return
		}
	}
	r.formats = append(r.formats, f)
}

func (r *Registry) Format(name string) (Format, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	for _, f := range r.formats {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// Formats returns the registered formats in probe order.
func (r *Registry) Formats() []Format {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	out := make([]Format, len(r.formats))
	copy(out, r.formats)
	return out
}

// Probe picks the format for an input. Magic bytes win; the file extension
// of name is only consulted when no format recognises header.
func (r *Registry) Probe(header []byte, name string) (Format, bool) {
	formats := r.Formats()

	for _, f := range formats {
		if f.Probe(header) {
			return f, true
		}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return nil, false
	}
	for _, f := range formats {
		for _, e := range f.Extensions() {
			if e == ext {
				return f, true
			}
		}
	}
	return nil, false
}

// RegisterDecoder maps codecID to factory. A nil factory removes the
// mapping.
func (r *Registry) RegisterDecoder(codecID string, factory DecoderFactory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if factory == nil {
		delete(r.decoders, codecID)
		return
	}
	r.decoders[codecID] = factory
}

func (r *Registry) Decoder(codecID string) (DecoderFactory, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	f, ok := r.decoders[codecID]
	return f, ok
}

func (r *Registry) SetResampler(factory ResamplerFactory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.resampler = factory
}

func (r *Registry) Resampler() (ResamplerFactory, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.resampler, r.resampler != nil
}
