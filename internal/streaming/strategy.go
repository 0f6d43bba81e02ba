// Package streaming implements StreamingStrategy (§4.3): a polymorphic byte
// source with cooperative cancellation and per-consumer cloning, plus the
// two concrete variants the core must support, LocalFile and RemoteFetch.
package streaming

import "context"

// ContentLength is "unknown" when a source cannot report its size up
// front (e.g. a chunked remote fetch before headers arrive).
const ContentLengthUnknown int64 = -1

// Strategy is the capability set every streaming source implements.
type Strategy interface {
	// ReadBytes fills buf and returns the number of bytes read. It returns
	// n==0 with a nil error only at end of stream; it may block on
	// network or disk I/O, and on internal backpressure, but must honor
	// ctx cancellation cooperatively between steps.
	ReadBytes(ctx context.Context, buf []byte) (n int, err error)

	// MimeType returns the content type, if known up front.
	MimeType() string

	// ContentLength returns the byte length, or ContentLengthUnknown.
	ContentLength() int64

	// Debug returns a short human-readable description for admin pages
	// and logs.
	Debug() string

	// Instance returns a new, independent Strategy sharing only immutable
	// configuration — so one underlying source can feed several
	// concurrent HTTP responses without interference.
	Instance() Strategy

	// Cancel aborts any in-flight transfer cooperatively at the next
	// polling point and releases buffers. Idempotent.
	Cancel()
}
