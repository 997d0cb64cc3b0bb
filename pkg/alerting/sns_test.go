package alerting

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSSinkSendSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	sink := &snsSink{
		id:       "ops",
		topicARN: "arn:aws:sns:::ingest-alerts",
		client:   client,
		log:      logger.NopLogger{},
	}

	err := sink.Send(context.Background(), Alert{
		Subject: "news ingest degraded: 3 consecutive failures",
		Body:    "details",
		Attributes: map[string]string{
			"alert_type":    AlertTypeConsecutiveFailures,
			"failure_count": "3",
		},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::ingest-alerts" {
		t.Fatalf("TopicArn = %s", got)
	}
	if got := aws.ToString(client.input.Subject); got != "news ingest degraded: 3 consecutive failures" {
		t.Fatalf("Subject = %s", got)
	}
	attr, ok := client.input.MessageAttributes["alert_type"]
	if !ok || attr.StringValue == nil || aws.ToString(attr.StringValue) != AlertTypeConsecutiveFailures {
		t.Fatalf("alert_type attribute missing or wrong: %#v", attr)
	}
	if attr.DataType == nil || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
}

func TestSNSSinkSendError(t *testing.T) {
	client := &fakeSNSClient{err: errors.New("boom")}
	sink := &snsSink{
		id:       "ops",
		topicARN: "arn:aws:sns:::ingest-alerts",
		client:   client,
		log:      logger.NopLogger{},
	}

	if err := sink.Send(context.Background(), Alert{Subject: "s", Body: "b"}); err == nil {
		t.Fatalf("expected error from Send")
	}
}
