package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus, err := NewBus()
	require.NoError(t, err)

	var mu sync.Mutex
	var got []EventType
	require.NoError(t, bus.AddHandler("collect", func(e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()
	<-bus.Running()

	for _, tpe := range []EventType{EventTurnAppended, EventTypingShown, EventTypingRemoved, EventTurnAppended} {
		require.NoError(t, bus.Publish(Event{Type: tpe}))
	}

	mu.Lock()
	require.Equal(t, []EventType{EventTurnAppended, EventTypingShown, EventTypingRemoved, EventTurnAppended}, got)
	mu.Unlock()

	require.NoError(t, bus.Close())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("router did not stop")
	}
}

func TestEvent_RoundTrip(t *testing.T) {
	b, err := Event{Type: EventBannerShown, Message: "boom", NodeID: "b1"}.Marshal()
	require.NoError(t, err)
	e, err := Unmarshal(b)
	require.NoError(t, err)
	require.Equal(t, EventBannerShown, e.Type)
	require.Equal(t, "boom", e.Message)
	require.False(t, e.At.IsZero())

	_, err = Unmarshal([]byte(`{"message": "no type"}`))
	require.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(Event{Type: EventTypingShown}))
	require.NoError(t, Discard.Publish(Event{Type: EventTypingShown}))
	require.Equal(t, []EventType{EventTypingShown}, r.Types())
	require.Len(t, r.Events(), 1)
}
