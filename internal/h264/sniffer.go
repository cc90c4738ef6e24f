package h264

// defaultSniffLimit bounds how many bytes the sniffer holds while waiting for
// the next start code.
const defaultSniffLimit = 1 << 20

// Sniffer watches a raw Annex-B stream arriving in arbitrary chunks and
// reports every SPS whose coded size differs from the previous one.
type Sniffer struct {
	// OnSPS is called from Write with each new parameter set.
	OnSPS func(SPS)
	// Limit caps the pending buffer; zero means 1 MiB.
	Limit int

	pending []byte
	last    SPS
	seen    bool
}

// Write consumes the next chunk of the stream. It never fails.
func (s *Sniffer) Write(p []byte) (int, error) {
	s.pending = append(s.pending, p...)

	// Everything before the final start code is made of complete NAL units.
	cut := lastStartCode(s.pending)
	if cut > 0 {
		for _, nal := range SplitAnnexB(s.pending[:cut]) {
			if NALUType(nal) == NALUSPS {
				s.observe(nal)
			}
		}
		s.pending = append(s.pending[:0], s.pending[cut:]...)
	}

	limit := s.Limit
	if limit <= 0 {
		limit = defaultSniffLimit
	}
	if len(s.pending) > limit {
		// keep a possible partial start code, never more than limit
		keep := min(3, limit)
		s.pending = append(s.pending[:0], s.pending[len(s.pending)-keep:]...)
	}
	return len(p), nil
}

func (s *Sniffer) observe(nal []byte) {
	sps, err := ParseSPS(nal)
	if err != nil {
		return
	}
	if s.seen && sps.Width == s.last.Width && sps.Height == s.last.Height {
		return
	}
	s.last, s.seen = sps, true
	if s.OnSPS != nil {
		s.OnSPS(sps)
	}
}

// Last returns the most recent SPS and whether one has been seen.
func (s *Sniffer) Last() (SPS, bool) { return s.last, s.seen }
