// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes WAV (RIFF/WAVE) files.
//
// The demuxer parses headers with github.com/go-audio/wav and then reads
// the data chunk directly, handing out packets of up to PacketFrames raw
// sample frames. Packets are timestamped in samples, so seeking is exact.
//
// # Supported Formats
//
//   - PCM 8, 16, 24 and 32-bit (including WAVE_FORMAT_EXTENSIBLE)
//   - IEEE float 32 and 64-bit
//   - Any channel count and sample rate
//
// Tags from the LIST/INFO chunk are exposed through Metadata.
//
// # Writing
//
// WriteWAV16 writes a complete 16-bit file when all samples are in memory:
//
//	err := wav.WriteWAV16(w, 16000, 1, samples)
//
// WriteChunks16 does the same for decoded chunks in any sample format, so
// the output can go to a pipe.
//
// Writer streams PCM chunks into a seekable file using the go-audio
// encoder:
//
//	w, _ := wav.NewWriter(file, format)
//	for chunk := range chunks {
//	    w.WriteChunk(chunk)
//	}
//	w.Close()
package wav
