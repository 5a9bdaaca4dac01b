package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubBasic(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "player:1:events")
	require.NoError(t, err)
	defer cancel()

	err = ps.Publish(ctx, "player:1:events", "hello")
	require.NoError(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, "player:1:events", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestPubSubUnsubscribe(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)
	assert.Equal(t, 1, ps.Subscribers("ch"))

	cancel()
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("channel not closed after cancel")
	}
	assert.Equal(t, 0, ps.Subscribers("ch"))

	assert.NoError(t, ps.Publish(ctx, "ch", "msg"))
}

func TestPubSubMultipleSubscribers(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch1, cancel1, _ := ps.Subscribe(ctx, "broadcast")
	ch2, cancel2, _ := ps.Subscribe(ctx, "broadcast")
	defer cancel1()
	defer cancel2()

	require.NoError(t, ps.Publish(ctx, "broadcast", "world"))

	for _, ch := range []<-chan *LocalMessage{ch1, ch2} {
		select {
		case msg := <-ch:
			assert.Equal(t, "world", msg.Payload)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber did not receive message")
		}
	}
}

func TestPubSubFullBufferDrops(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()

	ch, cancel, _ := ps.Subscribe(ctx, "c")
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "c", "first"))
	require.NoError(t, ps.Publish(ctx, "c", "second"))

	msg := <-ch
	assert.Equal(t, "first", msg.Payload)
	select {
	case <-ch:
		t.Fatal("second message should have been dropped")
	default:
	}
}

func TestPubSubCancelDuringPublish(t *testing.T) {
	ps := NewPubSub(4)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		_, cancel, _ := ps.Subscribe(ctx, "race")
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = ps.Publish(ctx, "race", "x")
		}()
		go func() {
			defer wg.Done()
			cancel()
		}()
	}
	wg.Wait()
}
