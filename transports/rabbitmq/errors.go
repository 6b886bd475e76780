package rabbitmq

import (
	"errors"
	"fmt"

	"github.com/glimte/mmate-plugin/internal/reliability"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrInvalidConfiguration indicates invalid pool or connection settings
	ErrInvalidConfiguration = errors.New("rabbitmq: invalid configuration")

	// ErrChannelCreationFailed indicates a channel could not be opened
	ErrChannelCreationFailed = errors.New("rabbitmq: failed to create channel")

	// ErrChannelPoolClosed indicates the pool has been closed
	ErrChannelPoolClosed = errors.New("rabbitmq: channel pool is closed")

	// ErrChannelPoolExhausted indicates no channel became available in time
	ErrChannelPoolExhausted = errors.New("rabbitmq: channel pool exhausted")
)

// ChannelError represents a channel-level failure
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("rabbitmq channel error: %s failed: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a failed channel call may succeed when tried
// again. Closed channels and errors the server marks unrecoverable are not
// transient, and other errors defer to reliability.IsRetryable.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, amqp.ErrClosed) || errors.Is(err, ErrChannelPoolClosed) {
		return false
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover
	}
	return reliability.IsRetryable(err)
}
