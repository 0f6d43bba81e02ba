// Package comet implements CometSession (§4.5): one long-lived HTTP
// response multiplexing a single query's incremental results as an
// open-ended JSON array.
package comet

import (
	"encoding/json"
	"sync"

	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/playdarlog"
	"github.com/playdar/resolverd/internal/resolver"
)

// chunkQueueDepth bounds the pending serialized-chunk FIFO between result
// delivery and the HTTP sink pulling the next write.
const chunkQueueDepth = 256

// Session binds one HTTP response to a subscriber entry in the
// QueryRegistry. It emits `[`, then comma-separated `{"query":...,
// "result":...}` objects, and never closes the array — the TCP connection
// closing is the terminator, matching the wire format of the original
// daemon's CometSession.hpp.
//
// Invariant: at most one in-flight socket write per Session at any time.
// The HTTP sink calls NextWrite, writes the returned bytes, then calls
// NextWrite again only once that write completes.
type Session struct {
	mu         sync.Mutex
	buffers    [][]byte
	writing    bool
	firstWrite bool
	cancelled  bool

	subs []*resolver.Subscription
	done chan struct{}
}

// New constructs a Session with no subscriptions yet; call Follow for each
// qid this /comet request should multiplex.
func New() *Session {
	return &Session{firstWrite: true, done: make(chan struct{})}
}

// Follow subscribes the session to qid's results and starts pumping them
// into the pending buffer in the background.
func (s *Session) Follow(registry *resolver.QueryRegistry, qid ids.QID) error {
	sub, err := registry.Subscribe(qid)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go s.pump(sub)
	return nil
}

func (s *Session) pump(sub *resolver.Subscription) {
	for {
		select {
		case <-s.done:
			return
		case item := <-sub.C():
			s.enqueueResult(sub.QID(), item)
		}
	}
}

func (s *Session) enqueueResult(qid ids.QID, item *resolver.ResolvedItem) {
	obj := map[string]interface{}{
		"query":  string(qid),
		"result": item.ToJSON(),
	}
	data, err := json.Marshal(obj)
	if err != nil {
		playdarlog.Comet().Error().Err(err).Msg("marshal comet result")
		return
	}
	s.enqueue(data)
	s.enqueue([]byte(","))
}

func (s *Session) enqueue(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	if len(s.buffers) >= chunkQueueDepth {
		playdarlog.Comet().Warn().Msg("comet session buffer full, dropping chunk")
		return
	}
	s.buffers = append(s.buffers, b)
}

// NextWrite returns the next chunk to write. It returns (nil, false) once
// the session has been cancelled, and (nil, true) when there is nothing new
// yet (the caller should poll again, e.g. select on a wake channel, rather
// than treat a momentary empty queue as end of stream). The opening "[" is
// always the first chunk returned.
func (s *Session) NextWrite() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return nil, false
	}

	if s.firstWrite {
		s.firstWrite = false
		return []byte("["), true
	}

	if s.writing && len(s.buffers) > 0 {
		s.buffers = s.buffers[1:]
		s.writing = false
	}

	if !s.writing && len(s.buffers) > 0 {
		s.writing = true
		return s.buffers[0], true
	}

	return nil, true
}

// Cancel terminates the session: the next write probe returns false, no
// further results are buffered, and the underlying registry subscriptions
// are released. Late results arriving after Cancel are silently dropped.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	close(s.done)
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
