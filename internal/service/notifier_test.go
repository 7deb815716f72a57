package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"civicpay/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_DeliversToSubscriber(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	ch, cancel := n.Subscribe("QR-1")
	defer cancel()

	n.Publish(&domain.PaymentConfirmation{Reference: "QR-1", Amount: 100})

	select {
	case conf, ok := <-ch:
		require.True(t, ok)
		assert.Equal(t, "QR-1", conf.Reference)
	case <-time.After(time.Second):
		t.Fatal("confirmation not delivered")
	}
}

func TestNotifier_DeliversToAllSubscribers(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	const subs = 5
	var wg sync.WaitGroup
	var received atomic.Int32

	for i := 0; i < subs; i++ {
		ch, cancel := n.Subscribe("QR-1")
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			if _, ok := <-ch; ok {
				received.Add(1)
			}
		}()
	}

	n.Publish(&domain.PaymentConfirmation{Reference: "QR-1"})
	wg.Wait()

	assert.Equal(t, int32(subs), received.Load())
}

func TestNotifier_ReferencesAreIsolated(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	ch, cancel := n.Subscribe("QR-other")
	defer cancel()

	n.Publish(&domain.PaymentConfirmation{Reference: "QR-1"})

	select {
	case <-ch:
		t.Fatal("received confirmation for a different reference")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_CancelBeforePublish(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	ch, cancel := n.Subscribe("QR-1")
	cancel()
	cancel() // safe to call twice

	// Must not panic or block on the removed channel.
	n.Publish(&domain.PaymentConfirmation{Reference: "QR-1"})

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "cancelled subscriber must not receive a message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_CloseReleasesSubscribers(t *testing.T) {
	n := NewNotifier(zerolog.Nop())

	ch, cancel := n.Subscribe("QR-1")
	defer cancel()

	n.Close()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close without a message")
	case <-time.After(time.Second):
		t.Fatal("subscriber not released on close")
	}

	// Subscribing after close returns a closed channel.
	ch2, cancel2 := n.Subscribe("QR-2")
	defer cancel2()
	_, ok := <-ch2
	assert.False(t, ok)
}

func TestNotifier_PublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	n := NewNotifier(zerolog.Nop())
	defer n.Close()

	done := make(chan struct{})
	go func() {
		n.Publish(&domain.PaymentConfirmation{Reference: "QR-nobody"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}
