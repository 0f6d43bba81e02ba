// Package httpbridge adapts an HTTP response writer to the StreamingStrategy
// sink contract of §4.4: send status+headers once, then pump read_bytes
// into a scratch buffer and write it to the socket, one outstanding write
// at a time.
package httpbridge

import (
	"context"
	"net/http"
	"strconv"

	"github.com/playdar/resolverd/internal/perr"
	"github.com/playdar/resolverd/internal/playdarlog"
	"github.com/playdar/resolverd/internal/streaming"
)

// ScratchBufferSize is the default read/write chunk size.
const ScratchBufferSize = 8 * 1024

// Pump writes strat's bytes to w as the HTTP response body. It sends
// headers once, then repeatedly reads into an 8 KiB scratch buffer and
// writes that buffer to the socket — the next read is issued only after
// the previous write completes, which is the backpressure mechanism. On a
// zero-length read it returns cleanly (graceful shutdown); on any write
// error, or if the request context is done (client disconnect), it calls
// strat.Cancel and returns.
func Pump(ctx context.Context, w http.ResponseWriter, strat streaming.Strategy) error {
	log := playdarlog.HTTP()

	if mt := strat.MimeType(); mt != "" {
		w.Header().Set("Content-Type", mt)
	}
	if cl := strat.ContentLength(); cl != streaming.ContentLengthUnknown {
		w.Header().Set("Content-Length", strconv.FormatInt(cl, 10))
	}
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)

	buf := make([]byte, ScratchBufferSize)
	for {
		select {
		case <-ctx.Done():
			strat.Cancel()
			return perr.Stream(perr.StreamCancelled, "client disconnected", ctx.Err())
		default:
		}

		n, err := strat.ReadBytes(ctx, buf)
		if err != nil {
			log.Warn().Err(err).Msg("stream read failed, cancelling")
			strat.Cancel()
			return err
		}
		if n == 0 {
			return nil
		}

		if _, werr := w.Write(buf[:n]); werr != nil {
			log.Warn().Err(werr).Msg("stream write failed, cancelling")
			strat.Cancel()
			return perr.Stream(perr.StreamIO, "write response", werr)
		}
		if canFlush {
			flusher.Flush()
		}
	}
}
