package resolver

import (
	"context"

	"github.com/playdar/resolverd/internal/playdarlog"
)

// workQueueDepth bounds the per-plugin FIFO work queue. A plugin that falls
// behind applies backpressure to dispatch by blocking the enqueue, rather
// than growing without bound.
const workQueueDepth = 64

// pluginWorker is the one long-lived goroutine each PluginAdaptor owns (§4.6,
// §5). It dequeues queries and calls the wrapped plugin's StartResolving,
// isolating a slow or misbehaving plugin from the pipeline and from other
// plugins.
type pluginWorker struct {
	adaptor *PluginAdaptor
	work    chan *Query
	done    chan struct{}
}

func newPluginWorker(pa *PluginAdaptor) *pluginWorker {
	w := &pluginWorker{
		adaptor: pa,
		work:    make(chan *Query, workQueueDepth),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *pluginWorker) enqueue(rq *Query) {
	select {
	case w.work <- rq:
	case <-w.done:
	}
}

func (w *pluginWorker) shutdown() {
	close(w.done)
}

func (w *pluginWorker) run() {
	for {
		select {
		case <-w.done:
			return
		case rq := <-w.work:
			w.resolveOne(rq)
		}
	}
}

// resolveOne calls the plugin's StartResolving, recovering from panics so a
// single bad plugin never takes down its worker or the pipeline (§7:
// plugin errors are caught at the worker boundary, logged, and do not
// terminate the worker or the query).
func (w *pluginWorker) resolveOne(rq *Query) {
	defer func() {
		if r := recover(); r != nil {
			playdarlog.Plugin().Error().
				Str("plugin", w.adaptor.Name).
				Str("qid", string(rq.QID)).
				Interface("panic", r).
				Msg("plugin panicked during resolve")
		}
	}()

	ctx := rq.cancelContext()
	w.adaptor.Plugin.StartResolving(ctx, rq)
}
