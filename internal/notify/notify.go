// Package notify publishes scan-completion notifications.
// The abstraction keeps the service independent of a specific broker;
// deployments without downstream consumers run the NoOp provider.
package notify

import "context"

// Provider defines the common interface for completion notifications.
type Provider interface {
	// Publish sends the scan id to the configured topic once the scan's
	// crawl reaches a terminal status.
	Publish(ctx context.Context, scanID string) error

	// Close cleans up any client connections and resources.
	Close() error
}

// NoOpProvider is a notification provider that performs no operations.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Publish(_ context.Context, _ string) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Close() error { return nil }
