package service

import (
	"sync"

	"civicpay/internal/core/domain"

	"github.com/rs/zerolog"
)

// Notifier implements ports.PaymentNotifier: an in-process rendezvous
// between webhook confirmations and blocked verify calls. Channels are
// buffered with capacity one and each receives at most one message, so
// publishing never blocks on a slow subscriber.
type Notifier struct {
	mu     sync.Mutex
	subs   map[string][]chan *domain.PaymentConfirmation
	closed bool
	log    zerolog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{
		subs: make(map[string][]chan *domain.PaymentConfirmation),
		log:  log,
	}
}

// Subscribe registers interest in a payment reference. The returned
// cancel func releases the subscription and is safe to call more than
// once or after delivery.
func (n *Notifier) Subscribe(reference string) (<-chan *domain.PaymentConfirmation, func()) {
	ch := make(chan *domain.PaymentConfirmation, 1)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	n.subs[reference] = append(n.subs[reference], ch)
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			chans := n.subs[reference]
			for i, c := range chans {
				if c == ch {
					n.subs[reference] = append(chans[:i], chans[i+1:]...)
					break
				}
			}
			if len(n.subs[reference]) == 0 {
				delete(n.subs, reference)
			}
		})
	}
	return ch, cancel
}

// Publish delivers conf to every current subscriber of its reference
// and releases them.
func (n *Notifier) Publish(conf *domain.PaymentConfirmation) {
	n.mu.Lock()
	chans := n.subs[conf.Reference]
	delete(n.subs, conf.Reference)
	n.mu.Unlock()

	for _, ch := range chans {
		ch <- conf
		close(ch)
	}

	if len(chans) > 0 {
		n.log.Debug().
			Str("reference", conf.Reference).
			Int("subscribers", len(chans)).
			Msg("payment confirmation delivered")
	}
}

// Close releases all subscribers. Their channels close without a
// message, which readers observe as no confirmation.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for ref, chans := range n.subs {
		for _, ch := range chans {
			close(ch)
		}
		delete(n.subs, ref)
	}
}
