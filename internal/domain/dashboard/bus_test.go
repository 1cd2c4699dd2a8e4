package dashboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusNotifiesInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var calls []string

	bus.Subscribe(func(View) { calls = append(calls, "a") })
	unsubscribe := bus.Subscribe(func(View) { calls = append(calls, "b") })
	bus.Subscribe(func(View) { calls = append(calls, "c") })

	bus.NotifyAll(View{Snapshot: emptySnapshot(1)})
	require.Equal(t, []string{"a", "b", "c"}, calls)

	unsubscribe()
	unsubscribe()
	require.Equal(t, 2, bus.Len())

	calls = nil
	bus.NotifyAll(View{Snapshot: emptySnapshot(2)})
	require.Equal(t, []string{"a", "c"}, calls)
}

func TestBusUnsubscribeDuringNotify(t *testing.T) {
	bus := NewBus()
	var unsubscribe func()
	hits := 0
	unsubscribe = bus.Subscribe(func(View) {
		hits++
		unsubscribe()
	})

	bus.NotifyAll(View{Snapshot: emptySnapshot(1)})
	bus.NotifyAll(View{Snapshot: emptySnapshot(2)})
	require.Equal(t, 1, hits)
	require.Zero(t, bus.Len())
}
