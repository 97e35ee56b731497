package util

import (
	"sync"
)

// Event is a one-shot signal. Notify may be called any number of times from
// any goroutine; only the first call has an effect.
type Event struct {
	once sync.Once
	done chan struct{}
}

func NewEvent() *Event {
	return &Event{
		done: make(chan struct{}),
	}
}

func (e *Event) Notify() {
	e.once.Do(func() {
		close(e.done)
	})
}

// Wait blocks until Notify has been called.
func (e *Event) Wait() {
	<-e.done
}

// Done exposes the event as a channel for use in select statements.
func (e *Event) Done() <-chan struct{} {
	return e.done
}

func (e *Event) HasBeenNotified() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
