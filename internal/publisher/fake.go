package publisher

import (
	"context"
	"sync"
)

// FakePublisher records published payloads for test assertions.
type FakePublisher struct {
	// PublishError, if set, is returned by Publish.
	PublishError error

	lock     sync.Mutex
	payloads [][]byte
	closed   bool
}

func (f *FakePublisher) Publish(_ context.Context, payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	return nil
}

// Payloads returns the payloads published so far.
func (f *FakePublisher) Payloads() [][]byte {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([][]byte(nil), f.payloads...)
}

func (f *FakePublisher) Closed() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.closed
}
