// SPDX-License-Identifier: EPL-2.0

// Package pcm decodes uncompressed PCM packets.
//
// Supported codec ids and the sample format frames come out in:
//   - pcm_u8: u8
//   - pcm_s16le, pcm_s16be: s16
//   - pcm_s24le, pcm_s24be, pcm_s32le, pcm_s32be: s32
//   - pcm_f32le: f32
//   - pcm_f64le: f64
//
// Packets must hold whole sample frames. A packet that does not is reported
// as codec.ErrInvalidData and dropped; the decoder stays usable.
package pcm
