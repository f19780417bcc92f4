package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/georgemunganga/printa-storefront/internal/logger"
)

const (
	retryMin = 100 * time.Millisecond
	retryMax = 30 * time.Second
)

// persister writes scheduled slots from a single background goroutine.
// Pending writes coalesce by key, so a burst of mutations costs one write.
// A failed write stays pending and is retried with exponential backoff.
type persister struct {
	backend Backend
	log     *logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string][]byte

	wake    chan struct{}
	flushes chan chan struct{}
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newPersister(backend Backend, log *logger.Logger, timeout time.Duration) *persister {
	p := &persister{
		backend: backend,
		log:     log,
		timeout: timeout,
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		flushes: make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) enqueue(batch map[string][]byte) {
	p.mu.Lock()
	for k, v := range batch {
		p.pending[k] = v
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)

	var retry <-chan time.Time
	backoff := time.Duration(0)
	for {
		var ok bool
		select {
		case <-p.wake:
			ok = p.drain()
		case <-retry:
			ok = p.drain()
		case ack := <-p.flushes:
			ok = p.drain()
			close(ack)
		case <-p.quit:
			if !p.drain() {
				p.log.Error("pending slots lost on shutdown", "keys", p.pendingKeys())
			}
			return
		}
		if ok {
			backoff, retry = 0, nil
			continue
		}
		backoff = nextBackoff(backoff)
		retry = time.After(backoff)
	}
}

// drain writes everything pending in one Put. On failure the batch goes back
// to pending, except for keys that were saved again in the meantime, so the
// slots of one atomic batch are retried together. Reports false on failure.
func (p *persister) drain() bool {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[string][]byte)
	p.mu.Unlock()

	if len(batch) == 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.backend.Put(ctx, batch); err != nil {
		p.mu.Lock()
		for k, v := range batch {
			if _, newer := p.pending[k]; !newer {
				p.pending[k] = v
			}
		}
		p.mu.Unlock()
		p.log.Warn("persist failed, will retry", "keys", sortedKeys(batch), "error", err)
		return false
	}
	p.log.Debug("persisted slots", "keys", sortedKeys(batch))
	return true
}

func (p *persister) isPending(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[key]
	return ok
}

func (p *persister) pendingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return sortedKeys(p.pending)
}

func nextBackoff(d time.Duration) time.Duration {
	if d < retryMin {
		return retryMin
	}
	if d *= 2; d > retryMax {
		return retryMax
	}
	return d
}

// flush blocks until everything enqueued before the call has been handed to the
// backend once. A failed write stays pending for the retry loop.
func (p *persister) flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case p.flushes <- ack:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) stop(ctx context.Context) error {
	p.once.Do(func() { close(p.quit) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) stopped() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
