package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_ string, handlers int, err error, _ int64) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got []Event
	_, err := b.Subscribe(VehicleDamaged, func(e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent(VehicleDamaged, "world", DamageData{VehicleID: "car-1", Tick: 7})))
	require.NoError(t, b.Publish(NewEvent(WorldReset, "world", ResetData{})))

	require.Len(t, got, 1)
	assert.Equal(t, "world", got[0].Source())
	assert.Equal(t, "car-1", got[0].Data().(DamageData).VehicleID)
	assert.False(t, got[0].Timestamp().IsZero())
}

func TestWildcard(t *testing.T) {
	b := New()
	var types []string
	_, err := b.Subscribe(Wildcard, func(e Event) error {
		types = append(types, e.Type())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.PublishBatch(
		NewEvent(BrainSaved, "server", BrainData{Name: "brain"}),
		NewEvent(BrainDiscarded, "server", BrainData{Name: "brain"}),
	))
	assert.Equal(t, []string{BrainSaved, BrainDiscarded}, types)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	calls := 0
	sub, err := b.Subscribe("e", func(Event) error { calls++; return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, "e", sub.EventType())

	require.NoError(t, b.Publish(NewEvent("e", "s", nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.NoError(t, b.Unsubscribe(nil))
	require.NoError(t, b.Publish(NewEvent("e", "s", nil)))

	assert.Equal(t, 1, calls)
	assert.False(t, sub.IsActive())

	_, err = b.Subscribe("e", nil)
	assert.Error(t, err)
}

func TestErrorAggregation(t *testing.T) {
	b := New()
	e1, e2 := errors.New("first"), errors.New("second")
	_, _ = b.Subscribe("x", func(Event) error { return e1 })
	_, _ = b.Subscribe("x", func(Event) error { return e2 })

	err := b.Publish(NewEvent("x", "src", nil))
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)

	err = b.PublishBatch(NewEvent("x", "src", nil), NewEvent("y", "src", nil))
	assert.ErrorIs(t, err, e1)
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	_, _ = b.Subscribe("e", func(e Event) error { return nil })
	_ = b.Publish(NewEvent("e", "s", nil))
	assert.Zero(t, b.GetMetrics().Published, "metrics should stay zero without observers")

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil))
	m := b.GetMetrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, uint64(1), m.SubscribersActive)
	assert.Equal(t, 1, obs.publishCount)
	assert.Equal(t, 1, obs.deliveredCount)

	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil))
	assert.Equal(t, 1, obs.publishCount)
}
