package adminfeed

import "encoding/json"

// Kind enumerates the resolution-engine lifecycle events the admin feed
// broadcasts.
type Kind string

const (
	QueryRegistered      Kind = "query.registered"
	QuerySolved          Kind = "query.solved"
	QueryCancelled       Kind = "query.cancelled"
	PluginDispatched     Kind = "plugin.dispatched"
	PluginResultReported Kind = "plugin.result_reported"
)

// Event is one lifecycle notification. Data carries event-specific fields
// (qid, plugin name, result count) as a flat map so the wire shape stays
// stable as new event kinds are added.
type Event struct {
	Kind Kind                   `json:"kind"`
	Data map[string]interface{} `json:"data"`
}

func (e Event) marshal() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent constructs an Event with the given kind and data fields.
func NewEvent(kind Kind, data map[string]interface{}) Event {
	return Event{Kind: kind, Data: data}
}
