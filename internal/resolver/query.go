package resolver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/perr"
)

// Origin distinguishes queries dispatched by the local daemon from ones
// relayed on behalf of a peer.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Mode is the dispatch mode requested by the caller.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeSpamme Mode = "spamme"
)

// Query is one in-flight or recently-solved resolution request. Immutable
// fields are set at construction; the mutable fields (items, solved, atime,
// cancelled, subscribers) are guarded by mu, a lock distinct from the
// registry's — this lets plugins append results in parallel without
// contending on QueryRegistry's map lock (§5).
type Query struct {
	// Immutable fields.
	QID       ids.QID
	Origin    Origin
	FromName  string
	ModeVal   Mode
	Params    map[string]interface{}
	CreatedAt time.Time

	mu        sync.Mutex
	items     []*ResolvedItem
	solved    bool
	atime     time.Time
	cancelled bool
	subs      map[SubscriptionID]chan<- *ResolvedItem
	nextSubID SubscriptionID
	nextSeq   uint64

	cancelCtx context.Context
	cancelFn  context.CancelFunc
}

// NewQuery constructs a Query in the uncancelled, unsolved state.
func NewQuery(qid ids.QID, origin Origin, fromName string, mode Mode, params map[string]interface{}) *Query {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Query{
		QID:       qid,
		Origin:    origin,
		FromName:  fromName,
		ModeVal:   mode,
		Params:    params,
		CreatedAt: now,
		atime:     now,
		subs:      make(map[SubscriptionID]chan<- *ResolvedItem),
		cancelCtx: ctx,
		cancelFn:  cancel,
	}
}

// cancelContext is handed to plugin workers; it is cancelled the instant
// Query.Cancel runs, so a plugin's blocking I/O can observe cancellation
// cooperatively between steps (§5).
func (q *Query) cancelContext() context.Context {
	return q.cancelCtx
}

// touch records an access for atime-driven eviction.
func (q *Query) touch() {
	q.mu.Lock()
	q.atime = time.Now()
	q.mu.Unlock()
}

// ATime returns the last-access time under lock.
func (q *Query) ATime() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.atime
}

// Cancelled reports whether Cancel has been called.
func (q *Query) Cancelled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancelled
}

// HasSubscribers reports whether any live subscriber remains, consulted by
// the registry sweep before evicting an idle query.
func (q *Query) HasSubscribers() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.subs) > 0
}

// Solved reports whether any item with score == 1.0 has been appended.
func (q *Query) Solved() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.solved
}

// Results returns a snapshot of the item list, sorted by (score desc,
// preference desc, insertion order) — the invariant holds at every
// observation point because items are kept sorted on every append.
func (q *Query) Results() []*ResolvedItem {
	q.touch()
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*ResolvedItem, len(q.items))
	copy(out, q.items)
	return out
}

// AppendResult inserts item into the sorted list and returns the set of
// subscriber channels to notify, or nil if the query is cancelled (in which
// case the item is dropped and no notification happens — (iii) once
// cancelled, no new items are appended and no subscriber callback fires).
func (q *Query) AppendResult(item *ResolvedItem) []chan<- *ResolvedItem {
	q.mu.Lock()
	if q.cancelled {
		q.mu.Unlock()
		return nil
	}

	item.seq = q.nextSeq
	q.nextSeq++
	q.items = append(q.items, item)
	sortItems(q.items)

	if item.Score == 1.0 {
		q.solved = true
	}
	q.atime = time.Now()

	subs := make([]chan<- *ResolvedItem, 0, len(q.subs))
	for _, ch := range q.subs {
		subs = append(subs, ch)
	}
	q.mu.Unlock()

	return subs
}

// sortItems orders by score desc, then preference desc, then insertion
// order — ResolverPipeline's ranking contract (§4.1).
func sortItems(items []*ResolvedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		pa, pb := 0, 0
		if a.Plugin != nil {
			pa = a.Plugin.Preference
		}
		if b.Plugin != nil {
			pb = b.Plugin.Preference
		}
		if pa != pb {
			return pa > pb
		}
		return a.seq < b.seq
	})
}

// Cancel marks the query cancelled, idempotently and immediately. No new
// items are appended and no subscriber callback fires after this returns;
// in-flight plugin work observes cancellation via cancelContext.
func (q *Query) Cancel() {
	q.mu.Lock()
	if q.cancelled {
		q.mu.Unlock()
		return
	}
	q.cancelled = true
	q.subs = make(map[SubscriptionID]chan<- *ResolvedItem)
	q.mu.Unlock()

	q.cancelFn()
}

// subscribe registers a new channel for push notification and returns the
// id used to unsubscribe later. Returns ok=false if the query is already
// cancelled.
func (q *Query) subscribe(ch chan<- *ResolvedItem) (SubscriptionID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancelled {
		return 0, false
	}
	id := q.nextSubID
	q.nextSubID++
	q.subs[id] = ch
	return id, true
}

// unsubscribe removes a subscriber; a dead/unknown id is a silent no-op
// (M_sub is a weak relation per §3).
func (q *Query) unsubscribe(id SubscriptionID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.subs, id)
}

// ToJSON renders the query's identifying fields — qid, artist, album,
// track, mode, solved, from-name — the wire shape FromJSON reconstructs
// from (FromJSON does not restore solved).
func (q *Query) ToJSON() map[string]interface{} {
	q.mu.Lock()
	solved := q.solved
	q.mu.Unlock()

	return map[string]interface{}{
		"qid":       string(q.QID),
		"artist":    stringParam(q.Params, "artist"),
		"album":     stringParam(q.Params, "album"),
		"track":     stringParam(q.Params, "track"),
		"mode":      string(q.ModeVal),
		"solved":    solved,
		"from_name": q.FromName,
	}
}

func stringParam(params map[string]interface{}, key string) string {
	if params == nil {
		return ""
	}
	v, _ := params[key].(string)
	return v
}

// FromJSON reconstructs a Query from the shape ToJSON produces. artist and
// track are required, matching the original resolver query's validity
// check; album, qid, mode and from_name are optional and default to "", a
// freshly generated qid, ModeNormal and "" respectively.
func FromJSON(doc map[string]interface{}) (*Query, error) {
	artist, _ := doc["artist"].(string)
	track, _ := doc["track"].(string)
	if artist == "" || track == "" {
		return nil, perr.BadRequest("artist and track are required")
	}

	params := map[string]interface{}{"artist": artist, "track": track}
	if album, _ := doc["album"].(string); album != "" {
		params["album"] = album
	}

	mode := ModeNormal
	if m, _ := doc["mode"].(string); m != "" {
		mode = Mode(m)
	}

	qid, _ := doc["qid"].(string)
	if qid == "" {
		qid = string(ids.NewQID())
	}

	fromName, _ := doc["from_name"].(string)

	return NewQuery(ids.QID(qid), OriginLocal, fromName, mode, params), nil
}
