package resolvers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/resolver"
)

func TestDelayPlugin_ForwardsAfterDelay(t *testing.T) {
	reporter := &recordingReporter{}
	inner := NewStaticPlugin("inner", reporter, testCatalogue())
	p := NewDelayPlugin("slowmirror", 20*time.Millisecond, inner)

	rq := resolver.NewQuery(ids.NewQID(), resolver.OriginLocal, "test", resolver.ModeNormal, map[string]interface{}{
		"artist": "Radiohead",
		"track":  "Videotape",
	})

	start := time.Now()
	p.StartResolving(context.Background(), rq)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Len(t, reporter.calls, 1)
}

func TestDelayPlugin_CancelledContextSkipsInner(t *testing.T) {
	reporter := &recordingReporter{}
	inner := NewStaticPlugin("inner", reporter, testCatalogue())
	p := NewDelayPlugin("slowmirror", time.Hour, inner)

	rq := resolver.NewQuery(ids.NewQID(), resolver.OriginLocal, "test", resolver.ModeNormal, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.StartResolving(ctx, rq)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartResolving did not return promptly on cancelled context")
	}
	assert.Empty(t, reporter.calls)
}

func TestDelayPlugin_StreamForwardsToInner(t *testing.T) {
	inner := NewStaticPlugin("inner", &recordingReporter{}, testCatalogue())
	p := NewDelayPlugin("slowmirror", time.Millisecond, inner)

	item := &resolver.ResolvedItem{
		Fields: map[string]interface{}{"artist": "Radiohead", "track": "Videotape"},
	}
	strat, err := p.Stream(context.Background(), item)
	assert.NoError(t, err)
	assert.NotNil(t, strat)
}
