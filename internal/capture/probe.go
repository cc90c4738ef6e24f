package capture

// probe opens the demuxer over the byte source, allocates the output buffer
// and binds a decoder and scaler to the chosen video stream.
func (d *streamDecoder) probe() error {
	demux, err := d.backend.NewDemuxer(d.src, ProbeOptions{
		ProbeSize:  d.cfg.ProbeSize,
		BufferSize: d.cfg.IOBufferSize,
		Format:     d.cfg.InputFormat,
	})
	if err != nil {
		return d.probeError("alloc input", err)
	}
	d.res.demux = demux

	if err := demux.Open(); err != nil {
		return d.probeError("open input", err)
	}

	out, err := d.backend.NewOutput(d.cfg.Width, d.cfg.Height)
	if err != nil {
		return d.probeError("alloc output", err)
	}
	d.res.output = out

	return d.selectStream()
}

func (d *streamDecoder) probeError(op string, err error) error {
	if d.src.err != nil {
		return d.src.err
	}
	return &ProbeError{Op: op, Err: err}
}

// selectStream walks every stream once. Each video stream that yields an
// open decoder and a scaler replaces the previous choice, so the last one
// wins.
func (d *streamDecoder) selectStream() error {
	for _, st := range d.res.demux.Streams() {
		if !st.IsVideo() {
			continue
		}
		log := d.log.With().Int("stream", st.Index()).Logger()

		dec, err := st.OpenDecoder()
		if err != nil {
			log.Debug().Err(err).Msg("skip stream: open decoder")
			continue
		}
		src := scalerSource{w: dec.Width(), h: dec.Height(), fmt: dec.PixFmt()}
		sc, err := d.backend.NewScaler(src.w, src.h, src.fmt, d.cfg.Width, d.cfg.Height)
		if err != nil {
			dec.Free()
			log.Debug().Err(err).Msg("skip stream: create scaler")
			continue
		}
		d.res.bind(st.Index(), dec, sc, src)
		log.Debug().Int("src_w", src.w).Int("src_h", src.h).Msg("video stream candidate")
	}

	if d.res.decoder == nil {
		return ErrNoStream
	}
	d.log.Info().Int("stream", d.res.stream).
		Int("src_w", d.res.source.w).Int("src_h", d.res.source.h).
		Int("dst_w", d.cfg.Width).Int("dst_h", d.cfg.Height).Msg("video stream selected")
	return nil
}
