// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"

	"github.com/ik5/mediapipe/media"
)

// -3 dB, used when a channel is folded into its neighbours.
const foldGain = 0.70710678

type mixKind int

const (
	mixCopy mixKind = iota
	mixToMono
	mixFromMono
	mixMatrix
)

// Remixer maps interleaved float32 frames from one channel layout to
// another.
//
// Down-mixing to mono averages every input channel. Up-mixing from mono
// duplicates the channel. Any other change goes through a gain matrix:
// positions present on both sides are copied, a missing centre is folded
// into front left and right at -3 dB, missing back or side channels fold
// into their nearest neighbour, and a missing LFE is dropped.
type Remixer struct {
	in, out     media.ChannelLayout
	inCh, outCh int
	kind        mixKind

	// matrix[o][i] is the gain of input channel i in output channel o.
	matrix [][]float32
}

func NewRemixer(in, out media.ChannelLayout) (*Remixer, error) {
	m := &Remixer{
		in:    in,
		out:   out,
		inCh:  in.Channels(),
		outCh: out.Channels(),
	}
	if m.inCh == 0 || m.outCh == 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedLayout, in, out)
	}

	switch {
	case in == out:
		m.kind = mixCopy
	case m.outCh == 1:
		m.kind = mixToMono
	case m.inCh == 1:
		m.kind = mixFromMono
	default:
		m.kind = mixMatrix
		m.matrix = buildMatrix(in, out)
	}

	return m, nil
}

func (m *Remixer) InChannels() int  { return m.inCh }
func (m *Remixer) OutChannels() int { return m.outCh }

// Mix writes frames frames from src into dst. dst must hold at least
// frames*OutChannels values.
func (m *Remixer) Mix(dst, src []float32, frames int) error {
	if len(dst) < frames*m.outCh || len(src) < frames*m.inCh {
		return ErrInvalidDstSize
	}

	switch m.kind {
	case mixCopy:
		copy(dst, src[:frames*m.inCh])

	case mixToMono:
		channels := m.inCh
		invChannels := float32(1.0) / float32(channels)

		// Unrolled loop for common cases
		switch channels {
		case 2: // Stereo (most common)
			for f := range frames {
				idx := f << 1
				dst[f] = (src[idx] + src[idx+1]) * 0.5
			}
		case 4: // Quad
			for f := range frames {
				idx := f << 2
				sum := src[idx] + src[idx+1] + src[idx+2] + src[idx+3]
				dst[f] = sum * 0.25
			}
		default:
			for f := range frames {
				sum := float32(0)
				baseIdx := f * channels
				for c := range channels {
					sum += src[baseIdx+c]
				}
				dst[f] = sum * invChannels
			}
		}

	case mixFromMono:
		for f := range frames {
			v := src[f]
			for c := range m.outCh {
				dst[f*m.outCh+c] = v
			}
		}

	case mixMatrix:
		for f := range frames {
			in := src[f*m.inCh : (f+1)*m.inCh]
			for o, gains := range m.matrix {
				sum := float32(0)
				for i, g := range gains {
					sum += g * in[i]
				}
				dst[f*m.outCh+o] = sum
			}
		}
	}

	return nil
}

// fold lists where a position goes when the output layout lacks it, in
// order of preference.
var fold = map[media.ChannelLayout][]media.ChannelLayout{
	media.ChannelFrontLeftOfCenter:  {media.ChannelFrontLeft},
	media.ChannelFrontRightOfCenter: {media.ChannelFrontRight},
	media.ChannelBackLeft:           {media.ChannelSideLeft, media.ChannelFrontLeft},
	media.ChannelBackRight:          {media.ChannelSideRight, media.ChannelFrontRight},
	media.ChannelSideLeft:           {media.ChannelBackLeft, media.ChannelFrontLeft},
	media.ChannelSideRight:          {media.ChannelBackRight, media.ChannelFrontRight},
}

func buildMatrix(in, out media.ChannelLayout) [][]float32 {
	outCh := out.Channels()
	matrix := make([][]float32, outCh)
	for o := range matrix {
		matrix[o] = make([]float32, in.Channels())
	}

	set := func(target media.ChannelLayout, i int, gain float32) bool {
		o := out.Index(target)
		if o < 0 {
			return false
		}
		matrix[o][i] += gain
		return true
	}

	for i, pos := range in.Positions() {
		if set(pos, i, 1) {
			continue
		}

		switch pos {
		case media.ChannelLowFrequency:
			// dropped
		case media.ChannelFrontCenter:
			set(media.ChannelFrontLeft, i, foldGain)
			set(media.ChannelFrontRight, i, foldGain)
		case media.ChannelBackCenter:
			if !(set(media.ChannelBackLeft, i, foldGain) && set(media.ChannelBackRight, i, foldGain)) &&
				!(set(media.ChannelSideLeft, i, foldGain) && set(media.ChannelSideRight, i, foldGain)) {
				set(media.ChannelFrontLeft, i, foldGain)
				set(media.ChannelFrontRight, i, foldGain)
			}
		default:
			for _, target := range fold[pos] {
				if set(target, i, foldGain) {
					break
				}
			}
		}
	}

	return matrix
}
