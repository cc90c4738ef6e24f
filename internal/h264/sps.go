package h264

import "errors"

// ErrNotSPS is returned by ParseSPS for anything but a sequence parameter set.
var ErrNotSPS = errors.New("h264: not an SPS NAL unit")

var errShortSPS = errors.New("h264: truncated SPS")

// SPS is the subset of a sequence parameter set the capture path cares about.
type SPS struct {
	ProfileIDC uint8
	LevelIDC   uint8
	Width      int
	Height     int
}

// profiles that carry chroma_format_idc and scaling lists
var highProfiles = map[uint8]bool{
	100: true, 110: true, 122: true, 244: true, 44: true, 83: true,
	86: true, 118: true, 128: true, 138: true, 139: true, 134: true,
}

// ParseSPS reads profile, level and the cropped picture size from an SPS NAL
// unit (header byte included, start code excluded).
func ParseSPS(nal []byte) (SPS, error) {
	if NALUType(nal) != NALUSPS {
		return SPS{}, ErrNotSPS
	}
	rbsp := unescape(nal[1:])
	if len(rbsp) < 3 {
		return SPS{}, errShortSPS
	}
	sps := SPS{ProfileIDC: rbsp[0], LevelIDC: rbsp[2]}
	br := &bitReader{b: rbsp, i: 24}

	br.ue() // seq_parameter_set_id

	chroma := uint(1)
	if highProfiles[sps.ProfileIDC] {
		chroma = br.ue()
		if chroma == 3 {
			br.skip(1) // separate_colour_plane_flag
		}
		br.ue() // bit_depth_luma_minus8
		br.ue() // bit_depth_chroma_minus8
		br.skip(1)
		if br.flag() {
			lists := 8
			if chroma == 3 {
				lists = 12
			}
			for i := 0; i < lists; i++ {
				if !br.flag() {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				br.scalingList(size)
			}
		}
	}

	br.ue() // log2_max_frame_num_minus4
	switch br.ue() {
	case 0:
		br.ue()
	case 1:
		br.skip(1)
		br.se()
		br.se()
		for n := br.ue(); n > 0 && br.err == nil; n-- {
			br.se()
		}
	}
	br.ue()    // max_num_ref_frames
	br.skip(1) // gaps_in_frame_num_value_allowed_flag

	mbWidth := br.ue() + 1
	mapHeight := br.ue() + 1
	frameMbsOnly := uint(0)
	if br.flag() {
		frameMbsOnly = 1
	} else {
		br.skip(1) // mb_adaptive_frame_field_flag
	}
	br.skip(1) // direct_8x8_inference_flag

	var cropL, cropR, cropT, cropB uint
	if br.flag() {
		cropL, cropR, cropT, cropB = br.ue(), br.ue(), br.ue(), br.ue()
	}
	if br.err != nil {
		return SPS{}, br.err
	}

	subW, subH := uint(1), uint(1)
	switch chroma {
	case 1:
		subW, subH = 2, 2
	case 2:
		subW, subH = 2, 1
	}
	unitY := subH * (2 - frameMbsOnly)

	sps.Width = int(mbWidth*16) - int((cropL+cropR)*subW)
	sps.Height = int(mapHeight*(2-frameMbsOnly)*16) - int((cropT+cropB)*unitY)
	if sps.Width <= 0 || sps.Height <= 0 {
		return SPS{}, errors.New("h264: invalid SPS dimensions")
	}
	return sps, nil
}

// unescape drops emulation prevention bytes (00 00 03 -> 00 00).
func unescape(b []byte) []byte {
	out := make([]byte, 0, len(b))
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c == 3 {
			zeros = 0
			continue
		}
		out = append(out, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// bitReader reads big-endian bit fields. The first read past the end sets err
// and every later read returns zero.
type bitReader struct {
	b   []byte
	i   int
	err error
}

func (br *bitReader) u(n int) uint {
	var v uint
	for k := 0; k < n; k++ {
		if br.i/8 >= len(br.b) {
			br.err = errShortSPS
		}
		if br.err != nil {
			return 0
		}
		bit := br.b[br.i/8] >> (7 - uint(br.i%8)) & 1
		v = v<<1 | uint(bit)
		br.i++
	}
	return v
}

func (br *bitReader) skip(n int) { br.u(n) }

func (br *bitReader) flag() bool { return br.u(1) == 1 }

// ue reads an unsigned Exp-Golomb code.
func (br *bitReader) ue() uint {
	zeros := 0
	for br.u(1) == 0 {
		if br.err != nil || zeros > 31 {
			if br.err == nil {
				br.err = errShortSPS
			}
			return 0
		}
		zeros++
	}
	return 1<<zeros - 1 + br.u(zeros)
}

// se reads a signed Exp-Golomb code.
func (br *bitReader) se() int {
	k := int(br.ue())
	if k%2 == 0 {
		return -k / 2
	}
	return (k + 1) / 2
}

func (br *bitReader) scalingList(size int) {
	last, next := 8, 8
	for j := 0; j < size && br.err == nil; j++ {
		if next != 0 {
			next = (last + br.se() + 256) % 256
		}
		if next != 0 {
			last = next
		}
	}
}
