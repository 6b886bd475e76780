package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glimte/mmate-plugin/plugin"
)

// ChannelPool hands out intercepted channels. Every channel it opens is
// wrapped with the pool's interceptor chain before first use.
type ChannelPool struct {
	open        ChannelOpener
	chain       *plugin.InterceptorChain
	channels    chan Channel
	maxSize     int
	waitTimeout time.Duration
	mu          sync.Mutex
	closed      bool
	activeCount int
}

// ChannelPoolOption configures the channel pool
type ChannelPoolOption func(*ChannelPool)

// WithMaxSize sets the maximum pool size
func WithMaxSize(size int) ChannelPoolOption {
	return func(cp *ChannelPool) {
		cp.maxSize = size
	}
}

// WithWaitTimeout sets how long Get waits for a channel when the pool is full
func WithWaitTimeout(timeout time.Duration) ChannelPoolOption {
	return func(cp *ChannelPool) {
		cp.waitTimeout = timeout
	}
}

// WithInterceptors sets the chain applied to every channel the pool opens
func WithInterceptors(chain *plugin.InterceptorChain) ChannelPoolOption {
	return func(cp *ChannelPool) {
		cp.chain = chain
	}
}

// NewChannelPool creates a new channel pool
func NewChannelPool(open ChannelOpener, options ...ChannelPoolOption) (*ChannelPool, error) {
	if open == nil {
		return nil, ErrInvalidConfiguration
	}

	pool := &ChannelPool{
		open:        open,
		maxSize:     10,
		waitTimeout: 5 * time.Second,
	}

	for _, opt := range options {
		opt(pool)
	}

	if pool.maxSize < 1 {
		return nil, fmt.Errorf("%w: max size must be at least 1", ErrInvalidConfiguration)
	}

	pool.channels = make(chan Channel, pool.maxSize)
	return pool, nil
}

// Get retrieves a channel from the pool, opening one when none is idle
func (cp *ChannelPool) Get(ctx context.Context) (Channel, error) {
	for {
		cp.mu.Lock()
		if cp.closed {
			cp.mu.Unlock()
			return nil, ErrChannelPoolClosed
		}
		cp.mu.Unlock()

		select {
		case ch, ok := <-cp.channels:
			if !ok {
				return nil, ErrChannelPoolClosed
			}
			if ch.IsClosed() {
				cp.release()
				continue
			}
			return ch, nil
		default:
		}

		if cp.reserve() {
			return cp.create(ctx)
		}

		// Wait for a channel to become available
		timer := time.NewTimer(cp.waitTimeout)
		select {
		case ch, ok := <-cp.channels:
			timer.Stop()
			if !ok {
				return nil, ErrChannelPoolClosed
			}
			if ch.IsClosed() {
				cp.release()
				continue
			}
			return ch, nil

		case <-ctx.Done():
			timer.Stop()
			return nil, &ChannelError{Op: "get channel", Err: ctx.Err()}

		case <-timer.C:
			return nil, &ChannelError{Op: "get channel", Err: ErrChannelPoolExhausted}
		}
	}
}

// Put returns a channel to the pool
func (cp *ChannelPool) Put(ch Channel) {
	if ch == nil {
		return
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.closed {
		_ = ch.Close()
		cp.activeCount--
		return
	}

	if ch.IsClosed() {
		cp.activeCount--
		return
	}

	select {
	case cp.channels <- ch:
	default:
		// Pool is full, close the channel
		_ = ch.Close()
		cp.activeCount--
	}
}

// Close closes all idle channels. Channels still checked out are closed when
// they are put back.
func (cp *ChannelPool) Close() error {
	cp.mu.Lock()
	if cp.closed {
		cp.mu.Unlock()
		return nil
	}
	cp.closed = true
	close(cp.channels)
	cp.mu.Unlock()

	var firstErr error
	for ch := range cp.channels {
		cp.release()
		if ch.IsClosed() {
			continue
		}
		if err := ch.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Size returns the number of open channels, idle or checked out
func (cp *ChannelPool) Size() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.activeCount
}

// Execute runs fn with a channel from the pool
func (cp *ChannelPool) Execute(ctx context.Context, fn func(Channel) error) error {
	ch, err := cp.Get(ctx)
	if err != nil {
		return err
	}
	defer cp.Put(ch)

	return fn(ch)
}

func (cp *ChannelPool) reserve() bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.activeCount >= cp.maxSize {
		return false
	}
	cp.activeCount++
	return true
}

func (cp *ChannelPool) release() {
	cp.mu.Lock()
	cp.activeCount--
	cp.mu.Unlock()
}

func (cp *ChannelPool) create(ctx context.Context) (Channel, error) {
	if err := ctx.Err(); err != nil {
		cp.release()
		return nil, &ChannelError{Op: "create channel", Err: err}
	}

	ch, err := openWith(cp.open, cp.chain)
	if err != nil {
		cp.release()
		return nil, err
	}
	return ch, nil
}
