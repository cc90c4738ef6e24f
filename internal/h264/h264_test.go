package h264

import (
	"bytes"
	"fmt"
	"math/bits"
	"testing"
)

type bitWriter struct {
	bits []byte
}

func (w *bitWriter) u(n int, v uint) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte(v>>uint(i)&1))
	}
}

func (w *bitWriter) ue(v uint) {
	n := bits.Len(v + 1)
	w.u(n-1, 0)
	w.u(n, v+1)
}

// nal closes the RBSP and returns header byte plus escaped payload.
func (w *bitWriter) nal(header byte) []byte {
	w.u(1, 1)
	for len(w.bits)%8 != 0 {
		w.bits = append(w.bits, 0)
	}
	raw := make([]byte, len(w.bits)/8)
	for i, b := range w.bits {
		raw[i/8] |= b << (7 - uint(i%8))
	}
	out := []byte{header}
	zeros := 0
	for _, c := range raw {
		if zeros >= 2 && c <= 3 {
			out = append(out, 3)
			zeros = 0
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

func baselineSPS(widthMbs, heightMbs uint) []byte {
	w := &bitWriter{}
	w.u(8, 66) // profile_idc
	w.u(8, 0)
	w.u(8, 31) // level_idc
	w.ue(0)    // sps id
	w.ue(0)    // log2_max_frame_num_minus4
	w.ue(0)    // pic_order_cnt_type
	w.ue(0)    // log2_max_pic_order_cnt_lsb_minus4
	w.ue(1)    // max_num_ref_frames
	w.u(1, 0)
	w.ue(widthMbs - 1)
	w.ue(heightMbs - 1)
	w.u(1, 1) // frame_mbs_only_flag
	w.u(1, 1) // direct_8x8_inference_flag
	w.u(1, 0) // frame_cropping_flag
	w.u(1, 0) // vui
	return w.nal(0x67)
}

func highSPS1080() []byte {
	w := &bitWriter{}
	w.u(8, 100)
	w.u(8, 0)
	w.u(8, 40)
	w.ue(0)
	w.ue(1) // chroma_format_idc 4:2:0
	w.ue(0)
	w.ue(0)
	w.u(1, 0)
	w.u(1, 0) // seq_scaling_matrix_present_flag
	w.ue(0)
	w.ue(2) // pic_order_cnt_type
	w.ue(3)
	w.u(1, 0)
	w.ue(119)
	w.ue(67)
	w.u(1, 1)
	w.u(1, 1)
	w.u(1, 1) // cropping
	w.ue(0)
	w.ue(0)
	w.ue(0)
	w.ue(4)
	w.u(1, 0)
	return w.nal(0x67)
}

func annexB(nalus ...[]byte) []byte {
	var b []byte
	for _, n := range nalus {
		b = append(b, 0, 0, 0, 1)
		b = append(b, n...)
	}
	return b
}

func TestSplitAnnexB(t *testing.T) {
	stream := []byte{0xff, 0, 0, 0, 1, 0x67, 1, 2, 0, 0, 1, 0x68, 3, 0, 0, 0, 1, 0x65, 4, 5}
	got := SplitAnnexB(stream)
	want := [][]byte{{0x67, 1, 2}, {0x68, 3}, {0x65, 4, 5}}
	if len(got) != len(want) {
		t.Fatalf("got %d nalus, want %d: %x", len(got), len(want), got)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("nalu %d = %x, want %x", i, got[i], want[i])
		}
	}
	if n := SplitAnnexB([]byte{1, 2, 3}); len(n) != 0 {
		t.Fatalf("no start code: got %x", n)
	}
}

func TestNALUType(t *testing.T) {
	tests := map[byte]uint8{0x67: NALUSPS, 0x68: NALUPPS, 0x65: NALUIDR, 0x41: NALUSlice, 0x09: NALUAUD}
	for hdr, want := range tests {
		if got := NALUType([]byte{hdr}); got != want {
			t.Errorf("NALUType(%#x) = %d, want %d", hdr, got, want)
		}
	}
	if NALUType(nil) != 0 {
		t.Error("NALUType(nil) != 0")
	}
}

func TestParseSPS(t *testing.T) {
	tests := []struct {
		name          string
		nal           []byte
		width, height int
		profile       uint8
	}{
		{"baseline 480x800", baselineSPS(30, 50), 480, 800, 66},
		{"baseline 720x1280", baselineSPS(45, 80), 720, 1280, 66},
		{"high cropped 1080p", highSPS1080(), 1920, 1080, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sps, err := ParseSPS(tt.nal)
			if err != nil {
				t.Fatalf("ParseSPS: %v", err)
			}
			if sps.Width != tt.width || sps.Height != tt.height {
				t.Fatalf("size = %dx%d, want %dx%d", sps.Width, sps.Height, tt.width, tt.height)
			}
			if sps.ProfileIDC != tt.profile {
				t.Fatalf("profile = %d, want %d", sps.ProfileIDC, tt.profile)
			}
		})
	}
}

func TestParseSPSErrors(t *testing.T) {
	if _, err := ParseSPS([]byte{0x68, 1, 2, 3}); err != ErrNotSPS {
		t.Fatalf("PPS: err = %v", err)
	}
	full := baselineSPS(30, 50)
	if _, err := ParseSPS(full[:5]); err == nil {
		t.Fatal("truncated SPS parsed")
	}
}

func TestUnescape(t *testing.T) {
	got := unescape([]byte{1, 0, 0, 3, 1, 0, 0, 3, 0, 2})
	want := []byte{1, 0, 0, 1, 0, 0, 0, 2}
	if !bytes.Equal(got, want) {
		t.Fatalf("unescape = %x, want %x", got, want)
	}
}

func TestSnifferReportsSizeChanges(t *testing.T) {
	pps := []byte{0x68, 0xce, 0x38, 0x80}
	idr := []byte{0x65, 0x88, 0x84, 0x21}
	stream := annexB(baselineSPS(30, 50), pps, idr)
	stream = append(stream, annexB(baselineSPS(30, 50), pps, idr)...)
	stream = append(stream, annexB(highSPS1080(), pps, idr)...)

	var got []SPS
	s := &Sniffer{OnSPS: func(sps SPS) { got = append(got, sps) }}
	for i := range stream {
		s.Write(stream[i : i+1])
	}

	if len(got) != 2 {
		t.Fatalf("OnSPS called %d times, want 2: %+v", len(got), got)
	}
	if got[0].Width != 480 || got[0].Height != 800 {
		t.Errorf("first = %dx%d", got[0].Width, got[0].Height)
	}
	if got[1].Width != 1920 || got[1].Height != 1080 {
		t.Errorf("second = %dx%d", got[1].Width, got[1].Height)
	}
	if last, ok := s.Last(); !ok || last.Width != 1920 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestSnifferBoundsPending(t *testing.T) {
	tests := []struct {
		limit int
		chunk []byte
	}{
		{16, make([]byte, 64)},
		{3, make([]byte, 8)},
		{2, []byte{0xAA, 0xBB, 0xCC}},
		{1, []byte{0xAA, 0xBB}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			s := &Sniffer{Limit: tt.limit}
			if n, err := s.Write(tt.chunk); n != len(tt.chunk) || err != nil {
				t.Fatalf("Write = %d, %v", n, err)
			}
			if len(s.pending) > tt.limit {
				t.Fatalf("pending = %d bytes, limit %d", len(s.pending), tt.limit)
			}
		})
	}
}

func TestSnifferTinyLimitStillFindsSPS(t *testing.T) {
	// the SPS fits in a single chunk, so it is parsed before the bound applies
	stream := annexB(baselineSPS(30, 50), []byte{0x68, 0xce, 0x38, 0x80})
	var got []SPS
	s := &Sniffer{Limit: 1, OnSPS: func(sps SPS) { got = append(got, sps) }}
	s.Write(stream)
	if len(got) != 1 || got[0].Width != 480 {
		t.Fatalf("got %+v", got)
	}
}
