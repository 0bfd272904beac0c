package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

// DefaultBufferSize is the per subscriber queue length
const DefaultBufferSize = 32

// Broker fans claim events out to in-process subscribers. A subscriber whose
// queue is full misses the event; publishers never block.
type Broker struct {
	bufferSize int

	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]chan model.ClaimEvent
	dropped atomic.Uint64
}

var _ interfaces.EventPublisher = (*Broker)(nil)

type Option func(*Broker)

func WithBufferSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		bufferSize: DefaultBufferSize,
		subs:       make(map[uint64]chan model.ClaimEvent),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe returns a channel of events that is closed when ctx is done
func (b *Broker) Subscribe(ctx context.Context) <-chan model.ClaimEvent {
	ch := make(chan model.ClaimEvent, b.bufferSize)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

func (b *Broker) Publish(ctx context.Context, ev model.ClaimEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			logging.From(ctx).Warn("dropped claim event for slow subscriber",
				"subscriber", id,
				"type", ev.Type,
				"claim_id", ev.ClaimID,
			)
		}
	}
}

// Subscribers returns the number of live subscriptions
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a queue was full
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}
