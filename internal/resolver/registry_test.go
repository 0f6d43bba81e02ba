package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/perr"
)

func TestRegistry_RegisterDuplicateQIDFails(t *testing.T) {
	reg := NewQueryRegistry(time.Hour)
	rq := newTestQuery()

	require.NoError(t, reg.Register(rq))
	err := reg.Register(rq)
	require.Error(t, err)

	perrErr, ok := err.(*perr.Error)
	require.True(t, ok)
	assert.Equal(t, perr.KindAlreadyExists, perrErr.Kind)
}

func TestRegistry_GetQueryUnknownIsNotFound(t *testing.T) {
	reg := NewQueryRegistry(time.Hour)
	_, err := reg.GetQuery(ids.NewQID())
	require.Error(t, err)

	perrErr, ok := err.(*perr.Error)
	require.True(t, ok)
	assert.Equal(t, perr.KindNotFound, perrErr.Kind)
}

func TestRegistry_RecordAndGetSourceRoundtrip(t *testing.T) {
	reg := NewQueryRegistry(time.Hour)
	rq := newTestQuery()
	require.NoError(t, reg.Register(rq))

	pa := &PluginAdaptor{Name: "localdisk"}
	item := &ResolvedItem{SID: ids.NewSID(), Score: 1.0, Plugin: pa}
	rq.AppendResult(item)
	reg.RecordSource(item.SID, rq.QID, pa)

	gotPlugin, gotItem, err := reg.GetSource(item.SID)
	require.NoError(t, err)
	assert.Equal(t, pa, gotPlugin)
	assert.Equal(t, item.SID, gotItem.SID)
}

func TestRegistry_GetSourceForEvictedQueryIsNotFound(t *testing.T) {
	reg := NewQueryRegistry(time.Hour)
	rq := newTestQuery()
	require.NoError(t, reg.Register(rq))

	sid := ids.NewSID()
	reg.RecordSource(sid, rq.QID, nil)

	_, err := reg.GetQuery(rq.QID)
	require.NoError(t, err)

	delete(reg.byQID, rq.QID)

	_, _, err = reg.GetSource(sid)
	require.Error(t, err)
}

func TestRegistry_CancelUnknownQueryIsNotFound(t *testing.T) {
	reg := NewQueryRegistry(time.Hour)
	err := reg.Cancel(ids.NewQID())
	require.Error(t, err)
}

func TestRegistry_SweepEvictsOnlyIdleQueriesPastRetention(t *testing.T) {
	reg := NewQueryRegistry(50 * time.Millisecond)

	stale := newTestQuery()
	require.NoError(t, reg.Register(stale))

	fresh := newTestQuery()
	require.NoError(t, reg.Register(fresh))

	time.Sleep(75 * time.Millisecond)
	fresh.touch()

	evicted := reg.Sweep()
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, reg.Len())

	_, err := reg.GetQuery(fresh.QID)
	assert.NoError(t, err)
	_, err = reg.GetQuery(stale.QID)
	assert.Error(t, err)
}

func TestRegistry_SweepSparesQueriesWithLiveSubscribers(t *testing.T) {
	reg := NewQueryRegistry(10 * time.Millisecond)
	rq := newTestQuery()
	require.NoError(t, reg.Register(rq))

	sub, err := reg.Subscribe(rq.QID)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	time.Sleep(25 * time.Millisecond)

	evicted := reg.Sweep()
	assert.Equal(t, 0, evicted)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_SweepDropsSourcesOfEvictedQueries(t *testing.T) {
	reg := NewQueryRegistry(10 * time.Millisecond)
	rq := newTestQuery()
	require.NoError(t, reg.Register(rq))

	sid := ids.NewSID()
	reg.RecordSource(sid, rq.QID, nil)

	time.Sleep(25 * time.Millisecond)
	reg.Sweep()

	_, _, err := reg.GetSource(sid)
	assert.Error(t, err)
}
