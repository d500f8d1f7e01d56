package sse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-sync/internal/sse"
)

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	emitter := sse.NewEmitter()
	ctx := context.Background()

	a := emitter.Subscribe(ctx, "kitchen")
	b := emitter.Subscribe(ctx, "kitchen")
	other := emitter.Subscribe(ctx, "floor")

	emitter.Broadcast("kitchen", sse.Message{Event: "tickets", Data: "payload"})

	for _, ch := range []chan sse.Message{a, b} {
		select {
		case msg := <-ch:
			assert.Equal(t, "tickets", msg.Event)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive broadcast")
		}
	}

	select {
	case <-other:
		t.Fatal("broadcast leaked across streams")
	default:
	}
}

func TestSubscriberRemovedOnContextCancel(t *testing.T) {
	emitter := sse.NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := emitter.Subscribe(ctx, "kitchen")
	require.Equal(t, 1, emitter.ClientCount("kitchen"))

	cancel()
	require.Eventually(t, func() bool {
		return emitter.ClientCount("kitchen") == 0
	}, time.Second, 10*time.Millisecond)

	// The channel is closed so ranging handlers terminate.
	_, open := <-ch
	assert.False(t, open)
}

func TestSlowSubscriberNeverBlocksBroadcast(t *testing.T) {
	emitter := sse.NewEmitter()
	_ = emitter.Subscribe(context.Background(), "kitchen")

	done := make(chan struct{})
	go func() {
		// Overflow the buffer; sends must drop, not block.
		for i := 0; i < 100; i++ {
			emitter.Broadcast("kitchen", sse.Message{Event: "tickets"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}
