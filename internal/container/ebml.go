// Package container implements a minimal, pure-Go EBML/Matroska (MKV)
// writer. It is generalized from the WebM/EBML encoder pattern (variable-
// length integer encoding, element IDs, Segment/Cluster/SimpleBlock
// framing) to emit MKV with H.264 video and AAC audio tracks instead of
// VP8/Opus, and to write a finite-size Segment to a file rather than
// streaming unknown-size segments to WebSocket subscribers.
package container

import (
	"bytes"
	"encoding/binary"
	"math"
)

// vint encodes v as an EBML variable-length integer element size.
func vint(v uint64) []byte {
	switch {
	case v < 0x7F:
		return []byte{byte(0x80 | v)}
	case v < 0x3FFF:
		return []byte{byte(0x40 | (v >> 8)), byte(v)}
	case v < 0x1FFFFF:
		return []byte{byte(0x20 | (v >> 16)), byte(v >> 8), byte(v)}
	case v < 0x0FFFFFFF:
		return []byte{byte(0x10 | (v >> 24)), byte(v >> 16), byte(v >> 8), byte(v)}
	default:
		return []byte{0x01,
			byte(v >> 48), byte(v >> 40), byte(v >> 32),
			byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	}
}

// unknownSize is the 8-byte unknown-length marker for a streamed element.
var unknownSize = []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// elem encodes an EBML element: id + vint(len(data)) + data.
func elem(id, data []byte) []byte {
	b := make([]byte, 0, len(id)+8+len(data))
	b = append(b, id...)
	b = append(b, vint(uint64(len(data)))...)
	return append(b, data...)
}

// uintBytes encodes an unsigned integer in the minimal number of
// big-endian bytes, as EBML uinteger elements require.
func uintBytes(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	n := 0
	for x := v; x > 0; x >>= 8 {
		n++
	}
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func concat(slices ...[]byte) []byte {
	n := 0
	for _, s := range slices {
		n += len(s)
	}
	b := make([]byte, 0, n)
	for _, s := range slices {
		b = append(b, s...)
	}
	return b
}

// Element IDs used by this writer. Matroska shares the EBML header IDs
// with WebM; DocType distinguishes the two.
var (
	idEBML         = []byte{0x1A, 0x45, 0xDF, 0xA3}
	idEBMLVersion  = []byte{0x42, 0x86}
	idEBMLReadVer  = []byte{0x42, 0xF7}
	idEBMLMaxIDLen = []byte{0x42, 0xF2}
	idEBMLMaxSzLen = []byte{0x42, 0xF3}
	idDocType      = []byte{0x42, 0x82}
	idDocTypeVer   = []byte{0x42, 0x87}
	idDocTypeRdVer = []byte{0x42, 0x85}

	idSegment = []byte{0x18, 0x53, 0x80, 0x67}
	idInfo    = []byte{0x15, 0x49, 0xA9, 0x66}
	idTcScale = []byte{0x2A, 0xD7, 0xB1}
	idMuxApp  = []byte{0x4D, 0x80}
	idWrtApp  = []byte{0x57, 0x41}

	idTracks     = []byte{0x16, 0x54, 0xAE, 0x6B}
	idTrackEntry = []byte{0xAE}
	idTrackNum   = []byte{0xD7}
	idTrackUID   = []byte{0x73, 0xC5}
	idTrackType  = []byte{0x83}
	idCodecID    = []byte{0x86}
	idCodecPrv   = []byte{0x63, 0xA2}
	idVideo      = []byte{0xE0}
	idPixelW     = []byte{0xB0}
	idPixelH     = []byte{0xBA}
	idAudio      = []byte{0xE1}
	idSampFreq   = []byte{0xB5}
	idChannels   = []byte{0x9F}

	idCluster     = []byte{0x1F, 0x43, 0xB6, 0x75}
	idTimecode    = []byte{0xE7}
	idSimpleBlock = []byte{0xA3}
)

const (
	trackNumVideo = 1
	trackNumAudio = 2

	trackTypeVideo = 1
	trackTypeAudio = 2
)

// initSegment returns the EBML header plus an unknown-size Segment opener
// followed by Info and Tracks. withAudio controls whether an AAC track is
// declared alongside the mandatory H.264 video track.
func initSegment(width, height uint16, withAudio bool, audioSampleRate uint32, audioChannels uint8, avcConfig, aacConfig []byte) []byte {
	var buf bytes.Buffer

	header := concat(
		elem(idEBMLVersion, uintBytes(1)),
		elem(idEBMLReadVer, uintBytes(1)),
		elem(idEBMLMaxIDLen, uintBytes(4)),
		elem(idEBMLMaxSzLen, uintBytes(8)),
		elem(idDocType, []byte("matroska")),
		elem(idDocTypeVer, uintBytes(4)),
		elem(idDocTypeRdVer, uintBytes(2)),
	)
	buf.Write(elem(idEBML, header))

	buf.Write(idSegment)
	buf.Write(unknownSize)

	info := concat(
		elem(idTcScale, uintBytes(1_000_000)), // 1ms per timecode unit
		elem(idMuxApp, []byte("classcore")),
		elem(idWrtApp, []byte("classcore")),
	)
	buf.Write(elem(idInfo, info))

	videoBody := concat(
		elem(idPixelW, uintBytes(uint64(width))),
		elem(idPixelH, uintBytes(uint64(height))),
	)
	videoEntry := concat(
		elem(idTrackNum, uintBytes(trackNumVideo)),
		elem(idTrackUID, uintBytes(trackNumVideo)),
		elem(idTrackType, uintBytes(trackTypeVideo)),
		elem(idCodecID, []byte("V_MPEG4/ISO/AVC")),
		elem(idCodecPrv, avcConfig),
		elem(idVideo, videoBody),
	)
	tracksBody := elem(idTrackEntry, videoEntry)

	if withAudio {
		freqBytes := make([]byte, 4)
		binary.BigEndian.PutUint32(freqBytes, math.Float32bits(float32(audioSampleRate)))
		audioBody := concat(
			elem(idSampFreq, freqBytes),
			elem(idChannels, uintBytes(uint64(audioChannels))),
		)
		audioEntry := concat(
			elem(idTrackNum, uintBytes(trackNumAudio)),
			elem(idTrackUID, uintBytes(trackNumAudio)),
			elem(idTrackType, uintBytes(trackTypeAudio)),
			elem(idCodecID, []byte("A_AAC")),
			elem(idCodecPrv, aacConfig),
			elem(idAudio, audioBody),
		)
		tracksBody = concat(tracksBody, elem(idTrackEntry, audioEntry))
	}
	buf.Write(elem(idTracks, tracksBody))
	return buf.Bytes()
}

// cluster builds a complete Cluster element at absolute timecode clusterMs
// containing the pre-encoded SimpleBlock entries in blocks.
func cluster(clusterMs int64, blocks []byte) []byte {
	tc := elem(idTimecode, uintBytes(uint64(clusterMs)))
	return elem(idCluster, concat(tc, blocks))
}

// simpleBlock encodes one SimpleBlock. relMs is the timecode relative to
// the enclosing cluster's start, clamped by the caller to int16 range.
func simpleBlock(trackNum int, relMs int16, keyframe bool, data []byte) []byte {
	trackVint := vint(uint64(trackNum))
	var flags byte
	if keyframe {
		flags = 0x80
	}
	content := make([]byte, len(trackVint)+2+1+len(data))
	copy(content, trackVint)
	binary.BigEndian.PutUint16(content[len(trackVint):], uint16(relMs))
	content[len(trackVint)+2] = flags
	copy(content[len(trackVint)+3:], data)
	return elem(idSimpleBlock, content)
}
