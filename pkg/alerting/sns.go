package alerting

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

// snsClient defines the minimal subset of the SNS client used by snsSink.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsSink delivers alerts to an AWS SNS topic.
type snsSink struct {
	id       string
	topicARN string
	client   snsClient
	log      logger.Logger
}

// newSNSSink creates an SNS-backed alert sink from config.
func newSNSSink(ctx context.Context, cfg SinkConfig, log logger.Logger) (Sink, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("alert sink %q missing sns configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loadOpts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(cfg.SNS.Region)}
	if cfg.SNS.AccessKeyEnv != "" && cfg.SNS.SecretKeyEnv != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				os.Getenv(cfg.SNS.AccessKeyEnv),
				os.Getenv(cfg.SNS.SecretKeyEnv),
				"",
			),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &snsSink{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      logger.Ensure(log),
	}, nil
}

func (s *snsSink) ID() string   { return s.id }
func (s *snsSink) Type() string { return TypeSNS }

// Send publishes the alert to the configured SNS topic.
func (s *snsSink) Send(ctx context.Context, alert Alert) error {
	attrs := make(map[string]types.MessageAttributeValue, len(alert.Attributes))
	for k, v := range alert.Attributes {
		attrs[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Subject:           aws.String(alert.Subject),
		Message:           aws.String(alert.Body),
		MessageAttributes: attrs,
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		s.log.ErrorObj("sns alert publish failed", "alert_sns_error", map[string]any{
			"sink_id": s.id,
			"error":   err.Error(),
		})
		return fmt.Errorf("publish alert to sns: %w", err)
	}
	s.log.DebugObj("sns alert delivered", "alert_sns_delivery", map[string]any{
		"sink_id": s.id,
		"subject": alert.Subject,
	})
	return nil
}
