// Package worker consumes acquisition progress reports from Pub/Sub.
package worker

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the Pub/Sub consumer.
type Config struct {
	ProjectID    string
	Subscription string

	// MaxOutstanding bounds unacknowledged messages held by the client.
	// Default: 10
	MaxOutstanding int

	// MaxExtension is how long the client keeps extending a message's ack deadline.
	// Default: 10 minutes
	MaxExtension time.Duration

	// HandlerTimeout bounds the processing of one message.
	// Default: 30 seconds
	HandlerTimeout time.Duration
}

// ConfigFromEnv reads PUBSUB_PROJECT_ID, PUBSUB_SUBSCRIPTION and PUBSUB_MAX_OUTSTANDING.
func ConfigFromEnv() Config {
	cfg := Config{
		ProjectID:      os.Getenv("PUBSUB_PROJECT_ID"),
		Subscription:   os.Getenv("PUBSUB_SUBSCRIPTION"),
		MaxOutstanding: 10,
		MaxExtension:   10 * time.Minute,
		HandlerTimeout: 30 * time.Second,
	}
	if cfg.Subscription == "" {
		cfg.Subscription = "das-callbacks"
	}
	if v, err := strconv.Atoi(os.Getenv("PUBSUB_MAX_OUTSTANDING")); err == nil && v > 0 {
		cfg.MaxOutstanding = v
	}
	return cfg
}

// Validate reports missing required settings.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return errors.New("PUBSUB_PROJECT_ID is required")
	}
	if c.Subscription == "" {
		return errors.New("subscription name is required")
	}
	return nil
}
