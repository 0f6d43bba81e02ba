package resolver

import (
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/playdar/resolverd/internal/adminfeed"
	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/playdarlog"
)

// ResolverPipeline owns the ordered plugin list and dispatches queries
// across it, enforcing the scope/weight/preference ordering of §4.1. It
// implements Reporter, the callback surface plugins use to hand back
// partial results.
type ResolverPipeline struct {
	registry *QueryRegistry
	feed     *adminfeed.Hub

	mu      sync.RWMutex
	plugins []*PluginAdaptor
}

// NewResolverPipeline constructs a pipeline bound to registry. Plugins are
// added afterward with AddPlugin, once each has been handed this pipeline
// as its Reporter.
func NewResolverPipeline(registry *QueryRegistry) *ResolverPipeline {
	return &ResolverPipeline{registry: registry}
}

// SetFeed attaches an admin feed hub for plugin dispatch/result events.
func (p *ResolverPipeline) SetFeed(feed *adminfeed.Hub) {
	p.feed = feed
}

func (p *ResolverPipeline) publish(kind adminfeed.Kind, data map[string]interface{}) {
	if p.feed == nil {
		return
	}
	p.feed.Publish(adminfeed.NewEvent(kind, data))
}

// AddPlugin appends a plugin to the dispatch list.
func (p *ResolverPipeline) AddPlugin(pa *PluginAdaptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plugins = append(p.plugins, pa)
}

// Plugins returns a snapshot of the registered plugins, dispatch-ordered:
// weight desc, then preference desc, then name asc.
func (p *ResolverPipeline) Plugins() []*PluginAdaptor {
	p.mu.RLock()
	out := make([]*PluginAdaptor, len(p.plugins))
	copy(out, p.plugins)
	p.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.Preference != b.Preference {
			return a.Preference > b.Preference
		}
		return strings.Compare(a.Name, b.Name) < 0
	})
	return out
}

// Find returns the registered plugin with the given name, for /<plugin>/...
// sub-URL delegation.
func (p *ResolverPipeline) Find(name string) (*PluginAdaptor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pa := range p.plugins {
		if pa.Name == name {
			return pa, true
		}
	}
	return nil, false
}

// Dispatch registers rq (failing with AlreadyExists if its qid is already
// live), then fans it out to every
// eligible plugin in dispatch order. It returns immediately — it does not
// wait for any plugin to produce a result.
func (p *ResolverPipeline) Dispatch(rq *Query, localOnly bool) (ids.QID, error) {
	if err := p.registry.Register(rq); err != nil {
		return "", err
	}

	for _, pa := range p.Plugins() {
		if pa.Weight == 0 {
			continue
		}
		if localOnly && pa.Scope != ScopeLocal {
			continue
		}
		pa.Dispatch(rq)
		p.publish(adminfeed.PluginDispatched, map[string]interface{}{"qid": string(rq.QID), "plugin": pa.Name})
	}

	return rq.QID, nil
}

// ReportResults is the Reporter entry point plugins call back with partial
// results. It assigns a sid to any item missing one, records it in the
// registry's source index, appends the item to the query (sorted,
// subscriber-notifying), and returns false if the query turned out to be
// cancelled or absent so the plugin can stop producing.
func (p *ResolverPipeline) ReportResults(qid ids.QID, items []*ResolvedItem, from *PluginAdaptor) bool {
	rq, err := p.registry.GetQuery(qid)
	if err != nil {
		return false
	}
	if rq.Cancelled() {
		return false
	}

	log := playdarlog.Resolver()
	ok := true
	for _, item := range items {
		if item.SID == "" {
			item.SID = ids.NewSID()
		}
		item.Plugin = from

		subs := rq.AppendResult(item)
		if subs == nil {
			// AppendResult returns nil only when the query is cancelled
			// (zero subscribers yields an empty, non-nil slice).
			if rq.Cancelled() {
				ok = false
				break
			}
			continue
		}

		p.registry.RecordSource(item.SID, qid, from)
		notifySubscribers(subs, item, log)

		fromName := ""
		if from != nil {
			fromName = from.Name
		}
		p.publish(adminfeed.PluginResultReported, map[string]interface{}{
			"qid": string(qid), "sid": string(item.SID), "plugin": fromName, "score": item.Score,
		})
		if item.Score == 1.0 {
			p.publish(adminfeed.QuerySolved, map[string]interface{}{"qid": string(qid)})
		}
	}
	return ok
}

// notifySubscribers delivers item to every subscriber channel snapshot,
// dropping (not blocking) on a full channel — a backed-up subscriber is
// treated like a dead one until it catches up (§3's "weak relation").
// Exceptions/panics in one subscriber's channel send must not prevent
// delivery to the others; a channel send itself cannot panic here, but the
// loop structure mirrors the isolation §4.1 requires.
func notifySubscribers(subs []chan<- *ResolvedItem, item *ResolvedItem, log *zerolog.Logger) {
	for _, ch := range subs {
		select {
		case ch <- item:
		default:
			log.Warn().Msg("dropped result notification: subscriber queue full")
		}
	}
}
