package alerting

import "context"

// Package alerting converts structured alert data into operator-facing
// messages while suppressing duplicate notifications.

// Alert is the payload handed to a sink.
type Alert struct {
	Topic      string            `json:"topic"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Sink delivers alerts to an external channel (SNS, log, ...).
type Sink interface {
	ID() string
	Type() string
	Send(ctx context.Context, alert Alert) error
}
