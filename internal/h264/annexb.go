// Package h264 contains the small amount of H.264 elementary-stream
// plumbing the recorder needs: Annex-B start-code parsing, AVCC length
// prefixing, and NAL unit classification.
package h264

import "bytes"

var (
	startCode3 = []byte{0x00, 0x00, 0x01}
	startCode4 = []byte{0x00, 0x00, 0x00, 0x01}
)

// NALUnitType represents H.264 NAL unit types
type NALUnitType uint8

const (
	NALUnitTypeSlice NALUnitType = 1
	NALUnitTypeIDR   NALUnitType = 5
	NALUnitTypeSEI   NALUnitType = 6
	NALUnitTypeSPS   NALUnitType = 7
	NALUnitTypePPS   NALUnitType = 8
	NALUnitTypeAUD   NALUnitType = 9
)

// UnitType returns the type of a NAL unit payload (no start code).
func UnitType(nalu []byte) NALUnitType {
	if len(nalu) == 0 {
		return 0
	}
	return NALUnitType(nalu[0] & 0x1F)
}

// SplitNALUs splits an Annex-B byte stream into NAL unit payloads,
// start codes removed. Data before the first start code is discarded.
func SplitNALUs(data []byte) [][]byte {
	var nalus [][]byte

	pos := findStartCode(data)
	if pos == -1 {
		return nil
	}

	for pos < len(data) {
		pos += startCodeLen(data[pos:])
		next := findStartCode(data[pos:])
		if next == -1 {
			if pos < len(data) {
				nalus = append(nalus, data[pos:])
			}
			break
		}
		if next > 0 {
			nalus = append(nalus, data[pos:pos+next])
		}
		pos += next
	}
	return nalus
}

// ConvertAnnexBToAVC rewrites an Annex-B access unit into AVCC form:
// each NAL unit prefixed with its big-endian 4-byte length instead of a
// start code. Data without start codes is treated as a single NAL unit.
func ConvertAnnexBToAVC(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}

	nalus := SplitNALUs(data)
	if nalus == nil {
		nalus = [][]byte{data}
	}

	size := 0
	for _, n := range nalus {
		size += 4 + len(n)
	}

	out := make([]byte, 0, size)
	for _, n := range nalus {
		out = appendLengthPrefixed(out, n)
	}
	return out
}

// PrependParameterSetsAVCC prepends SPS and PPS as length-prefixed NAL
// units to an AVCC access unit. Decoders recover more reliably when
// keyframes restate the parameter sets.
func PrependParameterSetsAVCC(avcc, sps, pps []byte) []byte {
	out := make([]byte, 0, len(avcc)+len(sps)+len(pps)+8)
	out = appendLengthPrefixed(out, sps)
	out = appendLengthPrefixed(out, pps)
	return append(out, avcc...)
}

func appendLengthPrefixed(dst, nalu []byte) []byte {
	l := uint32(len(nalu))
	dst = append(dst, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
	return append(dst, nalu...)
}

func findStartCode(data []byte) int {
	pos3 := bytes.Index(data, startCode3)
	if pos3 == -1 {
		return -1
	}
	// A 4-byte start code is a 3-byte one preceded by a zero byte.
	if pos3 > 0 && data[pos3-1] == 0x00 {
		return pos3 - 1
	}
	return pos3
}

func startCodeLen(data []byte) int {
	if bytes.HasPrefix(data, startCode4) {
		return 4
	}
	if bytes.HasPrefix(data, startCode3) {
		return 3
	}
	return 0
}
