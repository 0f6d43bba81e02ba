package resolver

import (
	"sync"
	"time"

	"github.com/playdar/resolverd/internal/adminfeed"
	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/perr"
	"github.com/playdar/resolverd/internal/playdarlog"
)

// DefaultRetention is the eviction window used when none is configured.
// One hour comfortably outlives a long-lived comet session without keeping
// stale queries around forever.
const DefaultRetention = 1 * time.Hour

// sidEntry is M_s's value: which query produced a source-uid, and through
// which plugin it should be streamed.
type sidEntry struct {
	qid    ids.QID
	plugin *PluginAdaptor
}

// QueryRegistry is the resolution engine's central index: qid→Query,
// sid→(qid, plugin), and atime-driven retention. Both maps share one
// RWMutex; the per-Query item list and subscriber set are guarded
// separately (query.go) so concurrent plugin appends never contend on this
// lock (§5).
type QueryRegistry struct {
	mu        sync.RWMutex
	byQID     map[ids.QID]*Query
	bySID     map[ids.SID]sidEntry
	retention time.Duration
	feed      *adminfeed.Hub
}

// SetFeed attaches an admin feed hub; events publish only once one is set,
// so tests and standalone tools can use a registry with no feed at all.
func (r *QueryRegistry) SetFeed(feed *adminfeed.Hub) {
	r.feed = feed
}

func (r *QueryRegistry) publish(kind adminfeed.Kind, data map[string]interface{}) {
	if r.feed == nil {
		return
	}
	r.feed.Publish(adminfeed.NewEvent(kind, data))
}

// NewQueryRegistry constructs an empty registry with the given retention
// window (0 selects DefaultRetention).
func NewQueryRegistry(retention time.Duration) *QueryRegistry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &QueryRegistry{
		byQID:     make(map[ids.QID]*Query),
		bySID:     make(map[ids.SID]sidEntry),
		retention: retention,
	}
}

// Register inserts rq into the live query table. If rq.QID is already live,
// returns AlreadyExists and leaves the existing query untouched.
func (r *QueryRegistry) Register(rq *Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byQID[rq.QID]; exists {
		return perr.AlreadyExists(string(rq.QID))
	}
	r.byQID[rq.QID] = rq
	r.publish(adminfeed.QueryRegistered, map[string]interface{}{"qid": string(rq.QID)})
	return nil
}

// GetQuery returns the live query for qid, touching its atime.
func (r *QueryRegistry) GetQuery(qid ids.QID) (*Query, error) {
	r.mu.RLock()
	rq, ok := r.byQID[qid]
	r.mu.RUnlock()
	if !ok {
		return nil, perr.NotFound("query " + string(qid))
	}
	rq.touch()
	return rq, nil
}

// GetResults returns qid's sorted result snapshot.
func (r *QueryRegistry) GetResults(qid ids.QID) ([]*ResolvedItem, error) {
	rq, err := r.GetQuery(qid)
	if err != nil {
		return nil, err
	}
	return rq.Results(), nil
}

// RecordSource indexes sid against the query and plugin that produced it.
// Called by ResolverPipeline.report_results when it assigns or observes a
// new sid.
func (r *QueryRegistry) RecordSource(sid ids.SID, qid ids.QID, plugin *PluginAdaptor) {
	r.mu.Lock()
	r.bySID[sid] = sidEntry{qid: qid, plugin: plugin}
	r.mu.Unlock()
}

// GetSource resolves sid to the plugin and item that produced it, so the
// HTTP bridge can ask that plugin for a StreamingStrategy. A sid whose
// parent query has been evicted returns NotFound, even though the
// sidEntry itself might still be present in bySID until the next sweep —
// sweep removes both together.
func (r *QueryRegistry) GetSource(sid ids.SID) (*PluginAdaptor, *ResolvedItem, error) {
	r.mu.RLock()
	entry, ok := r.bySID[sid]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, perr.NotFound("source " + string(sid))
	}

	rq, err := r.GetQuery(entry.qid)
	if err != nil {
		return nil, nil, perr.NotFound("source " + string(sid))
	}

	for _, item := range rq.Results() {
		if item.SID == sid {
			return entry.plugin, item, nil
		}
	}
	return nil, nil, perr.NotFound("source " + string(sid))
}

// Cancel marks qid cancelled and clears its subscribers. The query itself
// is dropped from the registry only at the next sweep, so a brief
// "cancelled query" placeholder remains addressable until then.
func (r *QueryRegistry) Cancel(qid ids.QID) error {
	r.mu.RLock()
	rq, ok := r.byQID[qid]
	r.mu.RUnlock()
	if !ok {
		return perr.NotFound("query " + string(qid))
	}
	rq.Cancel()
	r.publish(adminfeed.QueryCancelled, map[string]interface{}{"qid": string(qid)})
	return nil
}

// Subscribe registers a new Subscriber against qid.
func (r *QueryRegistry) Subscribe(qid ids.QID) (*Subscription, error) {
	rq, err := r.GetQuery(qid)
	if err != nil {
		return nil, err
	}

	ch := make(chan *ResolvedItem, subscriberQueueDepth)
	id, ok := rq.subscribe(ch)
	if !ok {
		return nil, perr.NotFound("query " + string(qid) + " is cancelled")
	}
	return &Subscription{id: id, qid: qid, query: rq, ch: ch}, nil
}

// Unsubscribe detaches a subscription.
func (r *QueryRegistry) Unsubscribe(sub *Subscription) {
	sub.Unsubscribe()
}

// Sweep removes cancelled queries unconditionally, plus queries whose atime
// is older than the retention window and that carry no live subscribers.
// Sources indexed under an evicted query are dropped in the same pass, so a
// later sid lookup for them fails with NotFound. A cancelled query drops
// from the registry at the next sweep regardless of how recently it was
// touched, so get_results/get_source return NotFound for it right after —
// Cancel alone only stops new appends and subscriber notifications, it does
// not remove the query from the registry.
func (r *QueryRegistry) Sweep() int {
	cutoff := time.Now().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for qid, rq := range r.byQID {
		if rq.Cancelled() {
			delete(r.byQID, qid)
			evicted++
			continue
		}
		if rq.ATime().After(cutoff) {
			continue
		}
		if rq.HasSubscribers() {
			continue
		}
		delete(r.byQID, qid)
		evicted++
	}
	if evicted > 0 {
		for sid, entry := range r.bySID {
			if _, live := r.byQID[entry.qid]; !live {
				delete(r.bySID, sid)
			}
		}
		playdarlog.Registry().Info().Int("evicted", evicted).Msg("swept expired queries")
	}
	return evicted
}

// Len reports the number of live queries, for admin pages and tests.
func (r *QueryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byQID)
}
