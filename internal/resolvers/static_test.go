package resolvers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/resolver"
)

// recordingReporter captures calls made through resolver.Reporter without
// needing a full pipeline/registry.
type recordingReporter struct {
	calls []struct {
		qid   ids.QID
		items []*resolver.ResolvedItem
	}
}

func (r *recordingReporter) ReportResults(qid ids.QID, items []*resolver.ResolvedItem, from *resolver.PluginAdaptor) bool {
	r.calls = append(r.calls, struct {
		qid   ids.QID
		items []*resolver.ResolvedItem
	}{qid, items})
	return true
}

func testCatalogue() []Track {
	return []Track{
		{Artist: "Radiohead", Album: "In Rainbows", Title: "Videotape", Path: "/music/videotape.flac"},
		{Artist: "Boards of Canada", Album: "Geogaddi", Title: "1969", Path: "/music/1969.flac"},
	}
}

func TestStaticPlugin_ExactMatchReportsScoreOne(t *testing.T) {
	reporter := &recordingReporter{}
	p := NewStaticPlugin("localdisk", reporter, testCatalogue())

	rq := resolver.NewQuery(ids.NewQID(), resolver.OriginLocal, "test", resolver.ModeNormal, map[string]interface{}{
		"artist": "Radiohead",
		"track":  "Videotape",
	})

	p.StartResolving(context.Background(), rq)

	require.Len(t, reporter.calls, 1)
	require.Len(t, reporter.calls[0].items, 1)
	assert.Equal(t, 1.0, reporter.calls[0].items[0].Score)
}

func TestStaticPlugin_PartialMatchReportsLowerScore(t *testing.T) {
	reporter := &recordingReporter{}
	p := NewStaticPlugin("localdisk", reporter, testCatalogue())

	rq := resolver.NewQuery(ids.NewQID(), resolver.OriginLocal, "test", resolver.ModeNormal, map[string]interface{}{
		"artist": "Radiohead",
	})

	p.StartResolving(context.Background(), rq)

	require.Len(t, reporter.calls, 1)
	require.Len(t, reporter.calls[0].items, 1)
	assert.Equal(t, 0.8, reporter.calls[0].items[0].Score)
}

func TestStaticPlugin_NoMatchReportsNothing(t *testing.T) {
	reporter := &recordingReporter{}
	p := NewStaticPlugin("localdisk", reporter, testCatalogue())

	rq := resolver.NewQuery(ids.NewQID(), resolver.OriginLocal, "test", resolver.ModeNormal, map[string]interface{}{
		"artist": "Nonexistent Band",
		"track":  "Nonexistent Track",
	})

	p.StartResolving(context.Background(), rq)
	assert.Empty(t, reporter.calls)
}

func TestStaticPlugin_StreamResolvesByArtistAndTrack(t *testing.T) {
	p := NewStaticPlugin("localdisk", &recordingReporter{}, testCatalogue())

	item := &resolver.ResolvedItem{
		Fields: map[string]interface{}{"artist": "Boards of Canada", "track": "1969"},
	}

	strat, err := p.Stream(context.Background(), item)
	require.NoError(t, err)
	require.NotNil(t, strat)
	assert.Equal(t, "LocalFile(/music/1969.flac)", strat.Debug())
}

func TestStaticPlugin_StreamUnknownTrackReturnsNil(t *testing.T) {
	p := NewStaticPlugin("localdisk", &recordingReporter{}, testCatalogue())

	item := &resolver.ResolvedItem{
		Fields: map[string]interface{}{"artist": "Nobody", "track": "Nothing"},
	}

	strat, err := p.Stream(context.Background(), item)
	require.NoError(t, err)
	assert.Nil(t, strat)
}

func TestStaticPlugin_StartResolvingRespectsCancelledContext(t *testing.T) {
	reporter := &recordingReporter{}
	p := NewStaticPlugin("localdisk", reporter, testCatalogue())

	rq := resolver.NewQuery(ids.NewQID(), resolver.OriginLocal, "test", resolver.ModeNormal, map[string]interface{}{
		"artist": "Radiohead",
		"track":  "Videotape",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.StartResolving(ctx, rq)
	assert.Empty(t, reporter.calls, "a plugin must not report once its context is already done")
}
