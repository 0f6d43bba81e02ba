package resolver

import "github.com/playdar/resolverd/internal/ids"

// ResolvedItem is a single candidate answer to a Query: a source identifier,
// a confidence score, and a bag of descriptive fields. Plugins construct
// items; ResolverPipeline.ReportResults fills in SID (when empty) and Plugin
// before appending, and the item is not mutated after that.
type ResolvedItem struct {
	SID   ids.SID
	Score float64 // in [0.0, 1.0]

	// Fields carries the descriptive metadata a plugin reports: artist,
	// album, track, duration, bitrate, size, source, url, mime, and any
	// plugin-specific extras.
	Fields map[string]interface{}

	// Plugin is the adaptor that produced this item; used later to obtain
	// a StreamingStrategy on demand when a client requests /sid/<sid>.
	Plugin *PluginAdaptor

	// seq is the insertion sequence number, used as the final tie-break in
	// result ordering (score desc, preference desc, insertion order).
	seq uint64
}

// FieldsCopy returns a shallow copy of the item's field map; callers that hand
// fields to JSON encoders should not mutate the original map in place.
func (r *ResolvedItem) FieldsCopy() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = v
	}
	return out
}

// ToJSON renders the item the way a /comet or /queries response embeds it:
// {"sid":..., "score":..., plus the field map flattened alongside}.
func (r *ResolvedItem) ToJSON() map[string]interface{} {
	out := r.FieldsCopy()
	out["sid"] = string(r.SID)
	out["score"] = r.Score
	if r.Plugin != nil {
		out["source"] = r.Plugin.Name
	}
	return out
}
