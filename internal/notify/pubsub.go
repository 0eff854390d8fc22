package notify

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
)

// PubSubProvider implements Provider over Google Cloud Pub/Sub. It
// authenticates using Application Default Credentials.
type PubSubProvider struct {
	client    *pubsub.Client
	topicName string
}

// NewPubSubProvider creates a Pub/Sub client bound to the given topic.
func NewPubSubProvider(ctx context.Context, projectID, topicID string) (*PubSubProvider, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubProvider{
		client:    client,
		topicName: fmt.Sprintf("projects/%s/topics/%s", projectID, topicID),
	}, nil
}

// Publish sends the scan id to the topic and waits for the server ack, so
// the caller can log delivery failures.
func (p *PubSubProvider) Publish(ctx context.Context, scanID string) error {
	publisher := p.client.Publisher(p.topicName)
	result := publisher.Publish(ctx, &pubsub.Message{Data: []byte(scanID)})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish scan %s: %w", scanID, err)
	}
	return nil
}

// Close closes the underlying client connection.
func (p *PubSubProvider) Close() error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
