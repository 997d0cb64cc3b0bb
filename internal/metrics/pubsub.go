package metrics

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

// PubSubSink publishes datapoints as JSON messages to a GCP Pub/Sub topic so
// a downstream metrics pipeline can aggregate them.
type PubSubSink struct {
	topic *pubsub.Topic
	log   logger.Logger
}

// NewPubSubSink connects to the topic. Extra client options are forwarded,
// which lets tests point the sink at the pstest emulator.
func NewPubSubSink(ctx context.Context, projectID, topicID string, log logger.Logger, opts ...option.ClientOption) (*PubSubSink, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub metrics sink requires project and topic")
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &PubSubSink{
		topic: client.Topic(topicID),
		log:   logger.Ensure(log),
	}, nil
}

// Emit publishes the datapoint. Failures are logged and dropped.
func (s *PubSubSink) Emit(ctx context.Context, dp Datapoint) {
	if s == nil || s.topic == nil {
		return
	}

	payload, err := json.Marshal(dp)
	if err != nil {
		s.log.ErrorObj("metric datapoint marshal failed", "metric_error", map[string]any{
			"name":  dp.Name,
			"error": err.Error(),
		})
		return
	}

	result := s.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"namespace": dp.Namespace,
			"name":      dp.Name,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		s.log.WarnObj("metric datapoint publish failed", "metric_error", map[string]any{
			"name":  dp.Name,
			"error": err.Error(),
		})
	}
}

// Stop flushes outstanding publishes.
func (s *PubSubSink) Stop() {
	if s == nil || s.topic == nil {
		return
	}
	s.topic.Stop()
}
