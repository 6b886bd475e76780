package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glimte/mmate-plugin/interceptors"
	"github.com/glimte/mmate-plugin/internal/reliability"
	"github.com/glimte/mmate-plugin/plugin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel records the calls it receives
type fakeChannel struct {
	mu         sync.Mutex
	published  []string
	declared   []string
	bound      []string
	closed     bool
	publishErr error
	declareErr error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, exchange+"/"+key+":"+string(msg.Body))
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declared = append(c.declared, "queue:"+name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.declareErr != nil {
		return c.declareErr
	}
	c.declared = append(c.declared, "exchange:"+name)
	return nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bound = append(c.bound, name+"->"+exchange)
	return nil
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) publishes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.published...)
}

// fakeOpener hands out fake channels and remembers them
type fakeOpener struct {
	mu       sync.Mutex
	channels []*fakeChannel
	err      error
}

func (o *fakeOpener) open() (Channel, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	ch := &fakeChannel{}
	o.channels = append(o.channels, ch)
	return ch, nil
}

func (o *fakeOpener) opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.channels)
}

func chainOf(t *testing.T, ics ...plugin.Interceptor) *plugin.InterceptorChain {
	t.Helper()
	chain := plugin.NewInterceptorChain()
	for _, ic := range ics {
		require.NoError(t, chain.Add(ic))
	}
	return chain
}

func recorder(seen *[]string, sigs ...plugin.Signature) plugin.Interceptor {
	var mu sync.Mutex
	return plugin.NewInterceptorFunc("recorder", sigs, func(inv *plugin.Invocation) ([]any, error) {
		mu.Lock()
		*seen = append(*seen, inv.Method().Name)
		mu.Unlock()
		return inv.Proceed()
	})
}

func TestSignatures(t *testing.T) {
	t.Run("every helper resolves against the contract", func(t *testing.T) {
		sigs := append([]plugin.Signature{PublishSignature(), CloseSignature()}, TopologySignatures()...)

		registry, err := plugin.NewSignatureRegistry(sigs...)
		require.NoError(t, err)
		assert.Equal(t, 5, registry.Len())
	})
}

func TestOpenChannel(t *testing.T) {
	t.Run("applies the chain to the opened channel", func(t *testing.T) {
		var seen []string
		opener := &fakeOpener{}

		ch, err := openWith(opener.open, chainOf(t, recorder(&seen, PublishSignature())))
		require.NoError(t, err)

		err = ch.PublishWithContext(context.Background(), "events", "order.created", false, false, amqp.Publishing{Body: []byte("1")})
		require.NoError(t, err)
		_, err = ch.QueueDeclare("orders", true, false, false, false, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"PublishWithContext"}, seen)
		assert.Equal(t, []string{"events/order.created:1"}, opener.channels[0].publishes())
	})

	t.Run("nil chain returns the raw channel", func(t *testing.T) {
		opener := &fakeOpener{}

		ch, err := openWith(opener.open, nil)
		require.NoError(t, err)
		assert.Same(t, opener.channels[0], ch)
	})

	t.Run("open failure is a channel error", func(t *testing.T) {
		dialErr := errors.New("connection refused")
		opener := &fakeOpener{err: dialErr}

		_, err := openWith(opener.open, nil)

		var chErr *ChannelError
		require.ErrorAs(t, err, &chErr)
		assert.Equal(t, "open channel", chErr.Op)
		assert.ErrorIs(t, err, ErrChannelCreationFailed)
		assert.ErrorIs(t, err, dialErr)
	})

	t.Run("unbound chain closes the channel", func(t *testing.T) {
		opener := &fakeOpener{}
		chain := plugin.NewInterceptorChain(plugin.WithChainContracts(plugin.NewContracts()))
		require.NoError(t, chain.Add(interceptors.NewLoggingInterceptor(nil, PublishSignature())))

		_, err := openWith(opener.open, chain)

		assert.ErrorIs(t, err, plugin.ErrNoBinding)
		assert.True(t, opener.channels[0].IsClosed())
	})

	t.Run("nil connection is invalid configuration", func(t *testing.T) {
		_, err := OpenChannel(nil, nil)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("publish failures pass through retries unchanged", func(t *testing.T) {
		brokerErr := errors.New("channel/connection is not open")
		opener := &fakeOpener{}
		chain := chainOf(t, interceptors.NewRetryInterceptor(reliability.NewFixedDelay(time.Millisecond, 2), PublishSignature()))

		ch, err := openWith(opener.open, chain)
		require.NoError(t, err)
		opener.channels[0].publishErr = brokerErr

		err = ch.PublishWithContext(context.Background(), "events", "k", false, false, amqp.Publishing{})
		assert.Same(t, brokerErr, err)
	})
}
