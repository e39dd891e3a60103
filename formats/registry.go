// SPDX-License-Identifier: EPL-2.0

// Package formats assembles every container and codec backend into a
// codec.Registry.
package formats

import (
	"github.com/ik5/mediapipe/audio"
	"github.com/ik5/mediapipe/codec"
	"github.com/ik5/mediapipe/formats/aiff"
	"github.com/ik5/mediapipe/formats/mp3"
	"github.com/ik5/mediapipe/formats/pcm"
	"github.com/ik5/mediapipe/formats/vorbis"
	"github.com/ik5/mediapipe/formats/wav"
)

// NewRegistry returns a registry with WAV, AIFF, Ogg Vorbis and MP3 inputs,
// their decoders, and the cubic resampler. MP3 is probed last since its
// frame sync is the weakest signature.
func NewRegistry() *codec.Registry {
	reg := codec.NewRegistry()

	reg.RegisterFormat(wav.Format{})
	reg.RegisterFormat(aiff.Format{})
	reg.RegisterFormat(vorbis.Format{})
	reg.RegisterFormat(mp3.Format{})

	pcm.Register(reg)
	reg.RegisterDecoder(codec.CodecVorbis, vorbis.NewDecoder)

	reg.SetResampler(audio.NewResampler)

	return reg
}
