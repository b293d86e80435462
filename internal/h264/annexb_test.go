package h264

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSPSNal = []byte{0x67, 0x42, 0x00, 0x1e, 0x96, 0x54, 0x05, 0x01, 0xed, 0x80}
	testPPSNal = []byte{0x68, 0xce, 0x38, 0x80}
	testIDRNal = []byte{0x65, 0x88, 0x84, 0x00, 0x10}
)

func annexB(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		out = append(out, 0x00, 0x00, 0x00, 0x01)
		out = append(out, n...)
	}
	return out
}

func TestSplitNALUs(t *testing.T) {
	data := annexB(testSPSNal, testPPSNal, testIDRNal)

	nalus := SplitNALUs(data)
	require.Len(t, nalus, 3)
	assert.Equal(t, testSPSNal, nalus[0])
	assert.Equal(t, testPPSNal, nalus[1])
	assert.Equal(t, testIDRNal, nalus[2])
}

func TestSplitNALUs_ThreeByteStartCodes(t *testing.T) {
	data := []byte{0x00, 0x00, 0x01}
	data = append(data, testSPSNal...)
	data = append(data, 0x00, 0x00, 0x01)
	data = append(data, testPPSNal...)

	nalus := SplitNALUs(data)
	require.Len(t, nalus, 2)
	assert.Equal(t, testSPSNal, nalus[0])
	assert.Equal(t, testPPSNal, nalus[1])
}

func TestSplitNALUs_NoStartCode(t *testing.T) {
	assert.Nil(t, SplitNALUs([]byte{0x65, 0x88, 0x84}))
	assert.Nil(t, SplitNALUs(nil))
}

func TestConvertAnnexBToAVC(t *testing.T) {
	data := annexB(testSPSNal, testPPSNal)

	avc := ConvertAnnexBToAVC(data)
	require.NotEmpty(t, avc)

	// First NAL unit length prefix (SPS)
	spsLen := uint32(avc[0])<<24 | uint32(avc[1])<<16 | uint32(avc[2])<<8 | uint32(avc[3])
	require.Equal(t, uint32(len(testSPSNal)), spsLen)
	assert.Equal(t, testSPSNal, avc[4:4+spsLen])

	// Second NAL unit length prefix (PPS)
	off := 4 + int(spsLen)
	ppsLen := uint32(avc[off])<<24 | uint32(avc[off+1])<<16 | uint32(avc[off+2])<<8 | uint32(avc[off+3])
	require.Equal(t, uint32(len(testPPSNal)), ppsLen)
	assert.Equal(t, testPPSNal, avc[off+4:off+4+int(ppsLen)])
}

func TestConvertAnnexBToAVC_RawNALU(t *testing.T) {
	// No start codes: treated as a single NAL unit
	avc := ConvertAnnexBToAVC(testIDRNal)
	require.Len(t, avc, len(testIDRNal)+4)
	assert.Equal(t, byte(len(testIDRNal)), avc[3])
}

func TestUnitType(t *testing.T) {
	assert.Equal(t, NALUnitTypeSPS, UnitType(testSPSNal))
	assert.Equal(t, NALUnitTypePPS, UnitType(testPPSNal))
	assert.Equal(t, NALUnitTypeIDR, UnitType(testIDRNal))
	assert.Equal(t, NALUnitType(0), UnitType(nil))
}

func TestPrependParameterSetsAVCC(t *testing.T) {
	avcc := ConvertAnnexBToAVC(annexB(testIDRNal))
	out := PrependParameterSetsAVCC(avcc, testSPSNal, testPPSNal)

	require.Len(t, out, len(avcc)+len(testSPSNal)+len(testPPSNal)+8)
	assert.Equal(t, byte(len(testSPSNal)), out[3])
}
