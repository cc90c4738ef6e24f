// Package h264 holds the small amount of H.264 bitstream knowledge needed
// next to the decoder: Annex-B splitting, NAL unit typing and reading the
// coded picture size out of a sequence parameter set.
package h264

// NAL unit types used by the capture path.
const (
	NALUSlice = 1
	NALUIDR   = 5
	NALUSEI   = 6
	NALUSPS   = 7
	NALUPPS   = 8
	NALUAUD   = 9
)

// NALUType returns the nal_unit_type of a NAL unit without start code.
func NALUType(nalu []byte) uint8 {
	if len(nalu) == 0 {
		return 0
	}
	return nalu[0] & 0x1F
}

// SplitAnnexB splits an Annex-B byte stream into NAL units, start codes
// removed. Bytes before the first start code are ignored.
func SplitAnnexB(b []byte) [][]byte {
	var nalus [][]byte
	_, end := findStartCode(b, 0)
	for end >= 0 {
		next, nextEnd := findStartCode(b, end)
		stop := next
		if next < 0 {
			stop = len(b)
		}
		if stop > end {
			nalus = append(nalus, b[end:stop])
		}
		end = nextEnd
	}
	return nalus
}

// findStartCode 尋找 00 00 01 或 00 00 00 01，回傳起始碼開頭與結尾位置
func findStartCode(b []byte, from int) (int, int) {
	for i := from; i+3 <= len(b); i++ {
		if b[i] != 0 || b[i+1] != 0 {
			continue
		}
		if b[i+2] == 1 {
			return i, i + 3
		}
		if i+4 <= len(b) && b[i+2] == 0 && b[i+3] == 1 {
			return i, i + 4
		}
	}
	return -1, -1
}

// lastStartCode returns the offset of the final start code in b, or -1.
func lastStartCode(b []byte) int {
	last := -1
	for i := 0; ; {
		start, end := findStartCode(b, i)
		if start < 0 {
			return last
		}
		last, i = start, end
	}
}
