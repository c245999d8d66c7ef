package viewmodel

import "sync"

// Value is a minimal observable container: readers get the current value,
// subscribers get the current value immediately and every later one through a
// latest-wins channel (buffered one deep, stale values dropped).
type Value[T any] struct {
	mu   sync.Mutex
	v    T
	subs map[int]chan T
	next int
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]chan T)}
}

func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	o.v = v
	for _, ch := range o.subs {
		offer(ch, v)
	}
	o.mu.Unlock()
}

// Subscribe returns a channel that starts with the current value, plus a
// cancel func releasing the subscription.
func (o *Value[T]) Subscribe() (<-chan T, func()) {
	o.mu.Lock()
	id := o.next
	o.next++
	ch := make(chan T, 1)
	ch <- o.v
	o.subs[id] = ch
	o.mu.Unlock()
	return ch, func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
