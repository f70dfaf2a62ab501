package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHub_DeliversToOwnUserOnly(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe("user-a")
	b := h.Subscribe("user-b")
	defer a.Close()
	defer b.Close()

	h.Publish("user-a", "submission.reviewed", map[string]string{"id": "s1"})

	select {
	case evt := <-a.Events():
		assert.Equal(t, "submission.reviewed", evt.Type)
		assert.Equal(t, "user-a", evt.UserID)
		assert.False(t, evt.OccurredAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case evt := <-b.Events():
		t.Fatalf("unexpected event for user-b: %+v", evt)
	default:
	}
}

func TestHub_PublishDoesNotBlock(t *testing.T) {
	h := NewHub(1)
	sub := h.Subscribe("user-a")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish("user-a", "badge.awarded", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, int64(9), h.Dropped())
}

func TestHub_CloseDetaches(t *testing.T) {
	h := NewHub(1)
	sub := h.Subscribe("user-a")
	require.Equal(t, 1, h.Subscribers("user-a"))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.Subscribers("user-a"))

	_, open := <-sub.Events()
	assert.False(t, open)

	// publishing with no subscribers is a no-op
	h.Publish("user-a", "submission.reviewed", nil)
}

func TestHub_ConcurrentPublishAndClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := NewHub(8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		sub := h.Subscribe("user-a")
		go func() {
			defer wg.Done()
			for range sub.Events() {
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Publish("user-a", "submission.reviewed", j)
			}
			sub.Close()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Subscribers("user-a"))
}
