package rabbitmq

import (
	"context"
	"errors"
	"reflect"

	"github.com/glimte/mmate-plugin/plugin"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp.Channel that can be intercepted
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	IsClosed() bool
	Close() error
}

var _ Channel = (*amqp.Channel)(nil)

type channelProxy struct{ d *plugin.Dispatcher }

func (p *channelProxy) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	_, err := p.d.Call("PublishWithContext", ctx, exchange, key, mandatory, immediate, msg)
	return err
}

func (p *channelProxy) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	out, err := p.d.Call("QueueDeclare", name, durable, autoDelete, exclusive, noWait, args)
	return plugin.Result[amqp.Queue](out, 0), err
}

func (p *channelProxy) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	_, err := p.d.Call("ExchangeDeclare", name, kind, durable, autoDelete, internal, noWait, args)
	return err
}

func (p *channelProxy) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	_, err := p.d.Call("QueueBind", name, key, exchange, noWait, args)
	return err
}

func (p *channelProxy) IsClosed() bool {
	out, _ := p.d.Call("IsClosed")
	return plugin.Result[bool](out, 0)
}

func (p *channelProxy) Close() error {
	_, err := p.d.Call("Close")
	return err
}

func init() {
	plugin.MustBind[Channel](plugin.DefaultContracts(), func(d *plugin.Dispatcher) Channel {
		return &channelProxy{d: d}
	})
}

var (
	contextType    = reflect.TypeFor[context.Context]()
	stringType     = reflect.TypeFor[string]()
	boolType       = reflect.TypeFor[bool]()
	tableType      = reflect.TypeFor[amqp.Table]()
	publishingType = reflect.TypeFor[amqp.Publishing]()
)

// PublishSignature selects Channel.PublishWithContext
func PublishSignature() plugin.Signature {
	return plugin.SignatureFor[Channel]("PublishWithContext",
		contextType, stringType, stringType, boolType, boolType, publishingType)
}

// QueueDeclareSignature selects Channel.QueueDeclare
func QueueDeclareSignature() plugin.Signature {
	return plugin.SignatureFor[Channel]("QueueDeclare",
		stringType, boolType, boolType, boolType, boolType, tableType)
}

// ExchangeDeclareSignature selects Channel.ExchangeDeclare
func ExchangeDeclareSignature() plugin.Signature {
	return plugin.SignatureFor[Channel]("ExchangeDeclare",
		stringType, stringType, boolType, boolType, boolType, boolType, tableType)
}

// QueueBindSignature selects Channel.QueueBind
func QueueBindSignature() plugin.Signature {
	return plugin.SignatureFor[Channel]("QueueBind",
		stringType, stringType, stringType, boolType, tableType)
}

// CloseSignature selects Channel.Close
func CloseSignature() plugin.Signature {
	return plugin.SignatureFor[Channel]("Close")
}

// TopologySignatures selects the declare and bind methods
func TopologySignatures() []plugin.Signature {
	return []plugin.Signature{QueueDeclareSignature(), ExchangeDeclareSignature(), QueueBindSignature()}
}

// ChannelOpener opens a new channel
type ChannelOpener func() (Channel, error)

// ConnectionOpener opens channels on conn
func ConnectionOpener(conn *amqp.Connection) ChannelOpener {
	return func() (Channel, error) {
		if conn == nil {
			return nil, ErrInvalidConfiguration
		}
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// OpenChannel opens a channel on conn and applies chain to it
func OpenChannel(conn *amqp.Connection, chain *plugin.InterceptorChain) (Channel, error) {
	return openWith(ConnectionOpener(conn), chain)
}

func openWith(open ChannelOpener, chain *plugin.InterceptorChain) (Channel, error) {
	ch, err := open()
	if err != nil {
		return nil, &ChannelError{Op: "open channel", Err: errors.Join(ErrChannelCreationFailed, err)}
	}
	if chain == nil {
		return ch, nil
	}

	wrapped, err := plugin.ApplyAs[Channel](chain, ch)
	if err != nil {
		_ = ch.Close()
		return nil, &ChannelError{Op: "apply interceptors", Err: err}
	}
	return wrapped, nil
}
