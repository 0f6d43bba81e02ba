package streaming

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/playdar/resolverd/internal/perr"
	"github.com/playdar/resolverd/internal/playdarlog"
)

// fetchQueueDepth bounds the byte queue between the fetch worker and the
// consumer. A full queue blocks the fetch worker — this is the
// backpressure mechanism §4.3 requires.
const fetchQueueDepth = 4

// remoteChunk carries either a chunk of body bytes or a terminal error.
type remoteChunk struct {
	data []byte
	err  error
}

// RemoteFetch is a lazily-connecting HTTP(S) Strategy. It publishes
// headers (content-length, content-type) before it publishes body bytes,
// and runs the actual GET on its own goroutine so ReadBytes never blocks
// on anything but the internal queue.
type RemoteFetch struct {
	url    string
	client *http.Client

	mu         sync.Mutex
	started    bool
	cancelled  bool
	cancelFn   context.CancelFunc
	mimeType   string
	contentLen int64
	headerErr  error
	headerWait chan struct{}

	chunks  chan remoteChunk
	leftover []byte
}

// NewRemoteFetch constructs a RemoteFetch over url, unconnected.
func NewRemoteFetch(url string, client *http.Client) *RemoteFetch {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteFetch{
		url:        url,
		client:     client,
		headerWait: make(chan struct{}),
		chunks:     make(chan remoteChunk, fetchQueueDepth),
		contentLen: ContentLengthUnknown,
	}
}

func (r *RemoteFetch) start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	fetchCtx, cancel := context.WithCancel(ctx)
	r.cancelFn = cancel
	r.mu.Unlock()

	go r.fetch(fetchCtx)
}

func (r *RemoteFetch) fetch(ctx context.Context) {
	log := playdarlog.Stream()
	defer close(r.chunks)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		r.publishHeaderError(perr.Stream(perr.StreamConnect, "build request", err))
		return
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.publishHeaderError(perr.Stream(perr.StreamConnect, "connect", err))
		return
	}
	defer resp.Body.Close()

	r.mu.Lock()
	r.mimeType = resp.Header.Get("Content-Type")
	if resp.ContentLength >= 0 {
		r.contentLen = resp.ContentLength
	}
	r.mu.Unlock()
	close(r.headerWait)

	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case r.chunks <- remoteChunk{data: chunk}:
			case <-ctx.Done():
				return
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			select {
			case r.chunks <- remoteChunk{err: perr.Stream(perr.StreamIO, "read body", err)}:
			case <-ctx.Done():
			}
			return
		}
	}
}

func (r *RemoteFetch) publishHeaderError(err error) {
	r.mu.Lock()
	r.headerErr = err
	r.mu.Unlock()
	close(r.headerWait)
}

func (r *RemoteFetch) ReadBytes(ctx context.Context, buf []byte) (int, error) {
	r.start(ctx)

	select {
	case <-r.headerWait:
	case <-ctx.Done():
		return 0, perr.Stream(perr.StreamCancelled, "read cancelled awaiting headers", ctx.Err())
	}

	r.mu.Lock()
	herr := r.headerErr
	r.mu.Unlock()
	if herr != nil {
		return 0, herr
	}

	if len(r.leftover) > 0 {
		n := copy(buf, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}

	select {
	case chunk, ok := <-r.chunks:
		if !ok {
			return 0, nil
		}
		if chunk.err != nil {
			return 0, chunk.err
		}
		n := copy(buf, chunk.data)
		if n < len(chunk.data) {
			r.leftover = chunk.data[n:]
		}
		return n, nil
	case <-ctx.Done():
		return 0, perr.Stream(perr.StreamCancelled, "read cancelled", ctx.Err())
	}
}

func (r *RemoteFetch) MimeType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mimeType == "" {
		return "application/octet-stream"
	}
	return r.mimeType
}

func (r *RemoteFetch) ContentLength() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contentLen
}

func (r *RemoteFetch) Debug() string {
	return fmt.Sprintf("RemoteFetch(%s)", r.url)
}

// Instance returns a fresh, unconnected RemoteFetch over the same URL.
func (r *RemoteFetch) Instance() Strategy {
	return NewRemoteFetch(r.url, r.client)
}

func (r *RemoteFetch) Cancel() {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	r.cancelled = true
	cancel := r.cancelFn
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	// Drain any buffered chunks so the fetch goroutine's sends don't block
	// forever on a queue nobody is reading anymore.
	go func() {
		for range r.chunks {
		}
	}()
}
