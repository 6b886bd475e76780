package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeDeclaration defines an exchange to be declared
type ExchangeDeclaration struct {
	Name       string
	Type       string
	Durable    bool
	AutoDelete bool
	Arguments  amqp.Table
}

// QueueDeclaration defines a queue to be declared
type QueueDeclaration struct {
	Name       string
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	Arguments  amqp.Table
}

// Binding defines a queue-to-exchange binding
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Arguments  amqp.Table
}

// Topology is a set of exchanges, queues and bindings declared together
type Topology struct {
	Exchanges []ExchangeDeclaration
	Queues    []QueueDeclaration
	Bindings  []Binding
}

// DeclareTopology declares exchanges, then queues, then bindings on a pooled
// channel. Interceptors registered for the topology signatures see every call.
func DeclareTopology(ctx context.Context, pool *ChannelPool, topology Topology) error {
	return pool.Execute(ctx, func(ch Channel) error {
		return declare(ch, topology)
	})
}

func declare(ch Channel, topology Topology) error {
	for _, exchange := range topology.Exchanges {
		err := ch.ExchangeDeclare(
			exchange.Name,
			exchange.Type,
			exchange.Durable,
			exchange.AutoDelete,
			false, // internal
			false, // no-wait
			exchange.Arguments,
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange.Name, err)
		}
	}

	for _, queue := range topology.Queues {
		_, err := ch.QueueDeclare(
			queue.Name,
			queue.Durable,
			queue.AutoDelete,
			queue.Exclusive,
			false, // no-wait
			queue.Arguments,
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue.Name, err)
		}
	}

	for _, binding := range topology.Bindings {
		err := ch.QueueBind(
			binding.Queue,
			binding.RoutingKey,
			binding.Exchange,
			false, // no-wait
			binding.Arguments,
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w",
				binding.Queue, binding.Exchange, err)
		}
	}

	return nil
}

// QueueWithDLQ returns the topology of a durable queue whose rejected
// messages are routed through exchange dlx to dlqName
func QueueWithDLQ(queueName, dlqName, dlx string) Topology {
	return Topology{
		Exchanges: []ExchangeDeclaration{
			{Name: dlx, Type: "direct", Durable: true},
		},
		Queues: []QueueDeclaration{
			{Name: dlqName, Durable: true},
			{
				Name:    queueName,
				Durable: true,
				Arguments: amqp.Table{
					"x-dead-letter-exchange":    dlx,
					"x-dead-letter-routing-key": dlqName,
				},
			},
		},
		Bindings: []Binding{
			{Queue: dlqName, Exchange: dlx, RoutingKey: dlqName},
		},
	}
}

// Publish publishes msg on a pooled channel
func Publish(ctx context.Context, pool *ChannelPool, exchange, key string, msg amqp.Publishing) error {
	return pool.Execute(ctx, func(ch Channel) error {
		return ch.PublishWithContext(ctx, exchange, key, false, false, msg)
	})
}
