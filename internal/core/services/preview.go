package services

import (
	"image"
	"log"
	"sync"

	"github.com/ewilliams-labs/visualizer/internal/driver"
)

// Preview is one presented live frame. Frame is shared by every subscriber
// and must not be modified.
type Preview struct {
	Frame  *image.RGBA
	Status driver.Status
}

// broadcaster fans live frames out to preview subscribers. Slow subscribers
// miss frames rather than stall the render loop.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Preview
	next   int
	last   *Preview
	closed bool
}

var _ driver.Presenter = (*broadcaster)(nil)

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: map[int]chan Preview{}}
}

func (b *broadcaster) Present(frame *image.RGBA, status driver.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	p := Preview{Frame: frame, Status: status}
	b.last = &p
	for id, ch := range b.subs {
		select {
		case ch <- p:
		default:
			// Replace the stale frame with the newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- p:
			default:
				log.Printf("WARN editor: preview subscriber %d lagging", id)
			}
		}
	}
}

// subscribe returns a channel of previews, primed with the latest one, and a
// func that ends the subscription.
func (b *broadcaster) subscribe() (<-chan Preview, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Preview, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.last != nil {
		ch <- *b.last
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.last = nil
}
