package resolvers

import (
	"context"
	"time"

	"github.com/playdar/resolverd/internal/resolver"
	"github.com/playdar/resolverd/internal/streaming"
)

// DelayPlugin wraps another ResolverPlugin and sleeps for a fixed duration
// before forwarding StartResolving to it, used to exercise target-time
// reporting and subscriber backpressure without needing a real slow
// resolver.
type DelayPlugin struct {
	name  string
	delay time.Duration
	inner resolver.ResolverPlugin
}

// NewDelayPlugin wraps inner, delaying each StartResolving call by delay.
func NewDelayPlugin(name string, delay time.Duration, inner resolver.ResolverPlugin) *DelayPlugin {
	return &DelayPlugin{name: name, delay: delay, inner: inner}
}

// Name identifies the plugin in logs and admin feed events.
func (p *DelayPlugin) Name() string { return p.name }

// StartResolving sleeps for p.delay, then forwards to the wrapped plugin
// unless ctx is cancelled first.
func (p *DelayPlugin) StartResolving(ctx context.Context, rq *resolver.Query) {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	p.inner.StartResolving(ctx, rq)
}

// Stream forwards directly to the wrapped plugin; streaming an already
// reported item incurs no synthetic delay.
func (p *DelayPlugin) Stream(ctx context.Context, item *resolver.ResolvedItem) (streaming.Strategy, error) {
	return p.inner.Stream(ctx, item)
}
