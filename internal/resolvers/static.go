// Package resolvers holds reference ResolverPlugin implementations used by
// tests and as runnable examples of the plugin trait. Real resolvers (disk
// search, HTTP fetch, tag cloud lookups) are out of scope; these exist to
// exercise the pipeline end-to-end.
package resolvers

import (
	"context"
	"strings"

	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/resolver"
	"github.com/playdar/resolverd/internal/streaming"
)

// Track is one entry in a StaticPlugin's fixed catalogue.
type Track struct {
	Artist string
	Album  string
	Title  string
	Path   string
}

// StaticPlugin resolves against a fixed in-memory track list with
// case-insensitive exact matching on artist and title, reporting back
// through the Reporter it was built with. It never reaches outside the
// process; its scope is whatever the wrapping PluginAdaptor declares.
type StaticPlugin struct {
	name     string
	reporter resolver.Reporter
	tracks   []Track
}

// NewStaticPlugin constructs a StaticPlugin serving tracks and reporting
// through reporter.
func NewStaticPlugin(name string, reporter resolver.Reporter, tracks []Track) *StaticPlugin {
	return &StaticPlugin{name: name, reporter: reporter, tracks: tracks}
}

// Name identifies the plugin in logs and admin feed events.
func (p *StaticPlugin) Name() string { return p.name }

// StartResolving scans the catalogue for matches against the query's
// artist/track params and reports any hits synchronously before returning.
func (p *StaticPlugin) StartResolving(ctx context.Context, rq *resolver.Query) {
	artist, _ := rq.Params["artist"].(string)
	title, _ := rq.Params["track"].(string)

	var hits []*resolver.ResolvedItem
	for _, t := range p.tracks {
		select {
		case <-ctx.Done():
			return
		default:
		}

		score := matchScore(t, artist, title)
		if score == 0 {
			continue
		}
		hits = append(hits, &resolver.ResolvedItem{
			SID:   ids.NewSID(),
			Score: score,
			Fields: map[string]interface{}{
				"artist": t.Artist,
				"album":  t.Album,
				"track":  t.Title,
			},
		})
	}

	if len(hits) > 0 {
		p.reporter.ReportResults(rq.QID, hits, nil)
	}
}

// Stream opens the matched track's backing file for the sid previously
// reported by this plugin. item.Fields carries no file path, so the
// plugin re-resolves it from its own catalogue by artist/track match.
func (p *StaticPlugin) Stream(ctx context.Context, item *resolver.ResolvedItem) (streaming.Strategy, error) {
	artist, _ := item.Fields["artist"].(string)
	title, _ := item.Fields["track"].(string)
	for _, t := range p.tracks {
		if t.Artist == artist && t.Title == title {
			return streaming.NewLocalFile(t.Path), nil
		}
	}
	return nil, nil
}

func matchScore(t Track, artist, title string) float64 {
	if artist == "" && title == "" {
		return 0
	}
	artistMatch := artist == "" || strings.EqualFold(t.Artist, artist)
	titleMatch := title == "" || strings.EqualFold(t.Title, title)
	if artistMatch && titleMatch && (artist != "" || title != "") {
		if artist != "" && title != "" {
			return 1.0
		}
		return 0.8
	}
	return 0
}
