// Package rabbitmq makes RabbitMQ channels interceptable.
//
// Channel is the subset of *amqp.Channel the package binds into the default
// contract catalog, so any plugin.Interceptor declaring one of the signature
// helpers (PublishSignature, QueueDeclareSignature, ...) can observe those
// calls. OpenChannel wraps a single channel; ChannelPool wraps every channel
// it opens.
package rabbitmq
