package capture

// scalerSource is the input geometry a scaler was built for.
type scalerSource struct {
	w, h int
	fmt  int32
}

// resources owns every media object of one stream session. Each field is nil
// until allocated and set back to nil once freed, so release can run any
// number of times from any exit path.
type resources struct {
	demux   Demuxer
	stream  int
	decoder Decoder
	scaler  Scaler
	source  scalerSource
	picture Picture
	output  OutputBuffer
}

func newResources() *resources {
	return &resources{stream: -1}
}

// bind makes dec and sc the active pair for stream index, releasing any
// pair bound for an earlier stream.
func (r *resources) bind(index int, dec Decoder, sc Scaler, src scalerSource) {
	r.unbind()
	r.stream, r.decoder, r.scaler, r.source = index, dec, sc, src
}

func (r *resources) unbind() {
	if r.scaler != nil {
		r.scaler.Free()
		r.scaler = nil
	}
	if r.decoder != nil {
		r.decoder.Free()
		r.decoder = nil
	}
	r.stream = -1
}

// replaceScaler swaps the scaler while keeping the decoder.
func (r *resources) replaceScaler(sc Scaler, src scalerSource) {
	if r.scaler != nil {
		r.scaler.Free()
	}
	r.scaler, r.source = sc, src
}

func (r *resources) dropPicture() {
	if r.picture != nil {
		r.picture.Free()
		r.picture = nil
	}
}

// release frees scaler, picture, output buffer, decoder and finally the
// demuxer. The demuxer goes last because its Close also frees the custom I/O
// context wrapping the byte source.
func (r *resources) release() {
	if r.scaler != nil {
		r.scaler.Free()
		r.scaler = nil
	}
	r.dropPicture()
	if r.output != nil {
		r.output.Free()
		r.output = nil
	}
	if r.decoder != nil {
		r.decoder.Free()
		r.decoder = nil
	}
	r.stream = -1
	if r.demux != nil {
		r.demux.Close()
		r.demux = nil
	}
}
