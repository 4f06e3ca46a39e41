// Package mqtt publishes detection events to an MQTT broker.
package mqtt

import (
	"context"
	"time"
)

// Client abstracts the broker connection so the pipeline can be tested
// without a live broker.
type Client interface {
	// Connect establishes the broker connection, honoring the context
	// deadline.
	Connect(ctx context.Context) error

	// Publish sends a payload to the given topic.
	Publish(ctx context.Context, topic, payload string) error

	// IsConnected reports whether the connection is currently up.
	IsConnected() bool

	// Disconnect tears the connection down.
	Disconnect()
}

// Config holds the connection settings.
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	Retain         bool
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// DefaultConfig returns a config with the connection timeouts filled in.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}
