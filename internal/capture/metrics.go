package capture

import "expvar"

// ====== 指標（expvar）======
var (
	evSessionsStarted = expvar.NewInt("capture_sessions_started")
	evSessionsFailed  = expvar.NewInt("capture_sessions_failed")
	evFramesEmitted   = expvar.NewInt("capture_frames_emitted")
	evFramesDropped   = expvar.NewInt("capture_frames_dropped")
	evBytesRead       = expvar.NewInt("capture_bytes_read")
	evReconnects      = expvar.NewInt("capture_reconnects")
	evDecodeErrors    = expvar.NewInt("capture_decode_errors")
	evPacketsDropped  = expvar.NewInt("capture_packets_discarded") // decoder busy
	evSourceW         = expvar.NewInt("capture_source_w")
	evSourceH         = expvar.NewInt("capture_source_h")
)
