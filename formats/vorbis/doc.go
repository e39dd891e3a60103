// SPDX-License-Identifier: EPL-2.0

// Package vorbis provides Ogg demuxing and Vorbis decoding.
//
// The demuxer reads Ogg pages itself: it verifies page checksums,
// reassembles packets that span pages, and attaches each page's granule
// position to the last packet that ends on it. The three Vorbis header
// packets are returned in the stream's Extradata. Stream parameters, the
// total length and the Vorbis comments come from
// github.com/jfreymuth/oggvorbis.
//
// The decoder wraps github.com/jfreymuth/vorbis. Because Vorbis packets
// carry no timestamps, decoded frames are released only once a granule
// position tells where they end. Output is interleaved float32 with the
// channels reordered from Vorbis order to layout order.
//
// # Seeking
//
// The first Seek scans the page headers of the whole file and keeps an
// index of granule positions. Seeks then land on the page boundary a few
// thousand samples before the target, so callers must trim the decoded
// output to reach the exact position.
package vorbis
