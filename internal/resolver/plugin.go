package resolver

import (
	"context"

	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/streaming"
)

// Reporter is the callback surface a ResolverPlugin uses to hand partial
// results back to the pipeline. Passed to each plugin at construction time
// (an explicit dependency, not a process-wide singleton — §9) rather than
// reached through a global.
type Reporter interface {
	// ReportResults appends items to qid's result list and notifies
	// subscribers. Returns false if the query is cancelled or unknown —
	// the plugin should stop producing for that qid.
	ReportResults(qid ids.QID, items []*ResolvedItem, from *PluginAdaptor) bool
}

// Scope controls whether a plugin may participate in queries whose origin
// is not the local daemon.
type Scope int

const (
	ScopeAny Scope = iota
	ScopeLocal
)

// ResolverPlugin is the trait every resolver implementation satisfies.
// Individual resolver implementations (local file search, HTTP fetch,
// tag-cloud engine) are out of scope here — this interface, the runtime
// registry keyed by name, and two reference implementations
// (internal/resolvers) are what the core owns.
type ResolverPlugin interface {
	// Name is the plugin's stable identifier, used for dispatch-order
	// tie-breaking and for indexing /<plugin>/... sub-URLs.
	Name() string

	// StartResolving resolves rq. It is called on the plugin's own worker
	// goroutine, so blocking I/O in it stalls only this plugin's queue;
	// results go back through the Reporter passed at construction time. It
	// must check ctx.Done() cooperatively between I/O steps and before each
	// report_results call.
	StartResolving(ctx context.Context, rq *Query)

	// Stream obtains a streaming.Strategy for a previously-reported item,
	// used when a client later requests /sid/<source-uid>.
	Stream(ctx context.Context, item *ResolvedItem) (streaming.Strategy, error)
}

// PluginAdaptor wraps a ResolverPlugin with the dispatch metadata
// ResolverPipeline uses to order and filter plugins: weight, preference,
// target-time and scope.
type PluginAdaptor struct {
	Name      string
	Classname string

	// Weight orders dispatch; 0 disables participation in dispatch
	// ordering but the plugin's HTTP sub-handlers (/<plugin>/...) remain
	// reachable.
	Weight int

	// Preference breaks ties between plugins of equal weight, and between
	// items of equal score.
	Preference int

	// TargetTimeMS is advisory: the pipeline reports it to callers but
	// never forcibly terminates a plugin that runs past it.
	TargetTimeMS int

	Scope Scope

	Plugin ResolverPlugin

	worker *pluginWorker
}

// NewPluginAdaptor wraps plugin with its dispatch metadata and starts its
// worker goroutine.
func NewPluginAdaptor(name, classname string, weight, preference, targetTimeMS int, scope Scope, plugin ResolverPlugin) *PluginAdaptor {
	pa := &PluginAdaptor{
		Name:         name,
		Classname:    classname,
		Weight:       weight,
		Preference:   preference,
		TargetTimeMS: targetTimeMS,
		Scope:        scope,
		Plugin:       plugin,
	}
	pa.worker = newPluginWorker(pa)
	return pa
}

// Dispatch enqueues rq for resolution on this plugin's worker. It blocks
// while the worker's queue is full, and returns without enqueueing once the
// worker has been shut down.
func (pa *PluginAdaptor) Dispatch(rq *Query) {
	pa.worker.enqueue(rq)
}

// Shutdown stops the plugin's worker, draining no further queued work.
func (pa *PluginAdaptor) Shutdown() {
	pa.worker.shutdown()
}
