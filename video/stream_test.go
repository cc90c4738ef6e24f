package video

import "math/bits"

// rbspWriter builds H.264 RBSP payloads bit by bit.
type rbspWriter struct {
	bits []byte
}

func (w *rbspWriter) u(n int, v uint) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte(v>>uint(i)&1))
	}
}

func (w *rbspWriter) ue(v uint) {
	n := bits.Len(v + 1)
	w.u(n-1, 0)
	w.u(n, v+1)
}

func (w *rbspWriter) align() {
	for len(w.bits)%8 != 0 {
		w.bits = append(w.bits, 0)
	}
}

// nal appends the stop bit and returns the escaped unit with its header.
func (w *rbspWriter) nal(header byte) []byte {
	w.u(1, 1)
	w.align()
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

// pcmStream returns an Annex-B baseline stream of one IDR picture whose
// macroblocks are all I_PCM filled with sample, so no entropy coding is
// involved. widthMbs and heightMbs are in 16x16 macroblocks.
func pcmStream(widthMbs, heightMbs uint, sample byte) []byte {
	sps := &rbspWriter{}
	sps.u(8, 66) // profile_idc baseline
	sps.u(8, 0)  // constraint flags
	sps.u(8, 30) // level_idc
	sps.ue(0)    // seq_parameter_set_id
	sps.ue(0)    // log2_max_frame_num_minus4
	sps.ue(0)    // pic_order_cnt_type
	sps.ue(0)    // log2_max_pic_order_cnt_lsb_minus4
	sps.ue(1)    // max_num_ref_frames
	sps.u(1, 0)  // gaps_in_frame_num_value_allowed_flag
	sps.ue(widthMbs - 1)
	sps.ue(heightMbs - 1)
	sps.u(1, 1) // frame_mbs_only_flag
	sps.u(1, 1) // direct_8x8_inference_flag
	sps.u(1, 0) // frame_cropping_flag
	sps.u(1, 0) // vui_parameters_present_flag

	pps := &rbspWriter{}
	pps.ue(0)   // pic_parameter_set_id
	pps.ue(0)   // seq_parameter_set_id
	pps.u(1, 0) // entropy_coding_mode_flag: CAVLC
	pps.u(1, 0) // bottom_field_pic_order_in_frame_present_flag
	pps.ue(0)   // num_slice_groups_minus1
	pps.ue(0)   // num_ref_idx_l0_default_active_minus1
	pps.ue(0)   // num_ref_idx_l1_default_active_minus1
	pps.u(1, 0) // weighted_pred_flag
	pps.u(2, 0) // weighted_bipred_idc
	pps.ue(0)   // pic_init_qp_minus26 (se 0)
	pps.ue(0)   // pic_init_qs_minus26 (se 0)
	pps.ue(0)   // chroma_qp_index_offset (se 0)
	pps.u(1, 1) // deblocking_filter_control_present_flag
	pps.u(1, 0) // constrained_intra_pred_flag
	pps.u(1, 0) // redundant_pic_cnt_present_flag

	slice := &rbspWriter{}
	slice.ue(0) // first_mb_in_slice
	slice.ue(7) // slice_type: I, whole picture
	slice.ue(0) // pic_parameter_set_id
	slice.u(4, 0)
	slice.ue(0)   // idr_pic_id
	slice.u(4, 0) // pic_order_cnt_lsb
	slice.u(1, 0) // no_output_of_prior_pics_flag
	slice.u(1, 0) // long_term_reference_flag
	slice.ue(0)   // slice_qp_delta (se 0)
	slice.ue(1)   // disable_deblocking_filter_idc
	for i := uint(0); i < widthMbs*heightMbs; i++ {
		slice.ue(25) // mb_type I_PCM
		slice.align()
		for j := 0; j < 256+2*64; j++ {
			slice.u(8, uint(sample))
		}
	}

	var out []byte
	for _, n := range [][]byte{sps.nal(0x67), pps.nal(0x68), slice.nal(0x65)} {
		out = append(out, 0, 0, 0, 1)
		out = append(out, n...)
	}
	return out
}
