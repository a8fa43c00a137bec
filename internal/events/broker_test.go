// ABOUTME: Tests for the in-memory event broker.
// ABOUTME: Covers subscribe, fan-out, disposers, context cancellation, slow subscribers.

package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func chunkEvent(convID, chunk string) Event {
	return Event{Kind: KindContentChunk, ConversationID: convID, Chunk: chunk}
}

func TestBroker_SubscriberReceivesEvent(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	ch, dispose := b.Subscribe(context.Background())
	defer dispose()

	b.Publish(chunkEvent("conv-1", "Hel"))

	select {
	case received := <-ch:
		assert.Equal(t, "conv-1", received.ConversationID)
		assert.Equal(t, "Hel", received.Chunk)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroker_FanOutToAllSubscribers(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	ch1, dispose1 := b.Subscribe(context.Background())
	defer dispose1()
	ch2, dispose2 := b.Subscribe(context.Background())
	defer dispose2()

	b.Publish(chunkEvent("conv-1", "x"))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			assert.Equal(t, "conv-1", received.ConversationID, "subscriber %d", i)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestBroker_OrderPreservedPerPublisher(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	ch, dispose := b.Subscribe(context.Background())
	defer dispose()

	for i := 0; i < 10; i++ {
		b.Publish(chunkEvent("conv-1", string(rune('a'+i))))
	}

	for i := 0; i < 10; i++ {
		select {
		case received := <-ch:
			assert.Equal(t, string(rune('a'+i)), received.Chunk)
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
}

func TestBroker_DisposerStopsDelivery(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	ch, dispose := b.Subscribe(context.Background())
	dispose()

	// Channel is closed on dispose; publish must not panic.
	b.Publish(chunkEvent("conv-1", "x"))

	_, open := <-ch
	assert.False(t, open, "channel should be closed after dispose")
}

func TestBroker_ContextCancellationUnsubscribes(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx)
	cancel()

	// Wait for the cleanup goroutine to close the channel.
	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancellation")
	}
}

func TestBroker_SlowSubscriberDropsWithoutBlocking(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	_, dispose := b.Subscribe(context.Background())
	defer dispose()

	done := make(chan struct{})
	go func() {
		// More events than the subscriber buffer holds; nobody is reading.
		for i := 0; i < subscriberBufferSize*2; i++ {
			b.Publish(chunkEvent("conv-1", "x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBroker_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := NewBroker(nil)
	b.Close()

	ch, dispose := b.Subscribe(context.Background())
	defer dispose()

	_, open := <-ch
	assert.False(t, open)
}
