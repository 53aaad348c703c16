package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	a := broker.Subscribe("a", 10)
	b := broker.Subscribe("b", 10)

	require.Equal(t, 0, broker.Publish(42))
	require.Equal(t, 42, <-a)
	require.Equal(t, 42, <-b)
}

func TestBrokerDropsOldestWhenFull(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ch := broker.Subscribe("slow", 2)
	require.Equal(t, 0, broker.Publish(1))
	require.Equal(t, 0, broker.Publish(2))
	require.Equal(t, 1, broker.Publish(3))

	require.Equal(t, 2, <-ch)
	require.Equal(t, 3, <-ch)
}

func TestBrokerResubscribeReplaces(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	first := broker.Subscribe("ui", 10)
	second := broker.Subscribe("ui", 10)

	_, ok := <-first
	require.False(t, ok)

	broker.Publish("hello")
	require.Equal(t, "hello", <-second)
}

func TestBrokerUnsubscribe(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ch := broker.Subscribe("a", 10)
	broker.Unsubscribe("a")
	_, ok := <-ch
	require.False(t, ok)

	broker.Unsubscribe("unknown")
	require.Equal(t, 0, broker.Publish(1))
}

func TestBrokerClose(t *testing.T) {
	broker := NewBroker[int]()
	ch := broker.Subscribe("a", 10)

	broker.Close()
	_, ok := <-ch
	require.False(t, ok)

	require.Equal(t, 0, broker.Publish(1))
	broker.Close()
}
