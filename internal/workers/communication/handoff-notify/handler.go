package handoffnotify

import (
	"context"
	"time"

	"shopassist/internal/common/aws"
	"shopassist/internal/common/logger"
	"shopassist/internal/common/metrics"
)

const (
	TaskType = "handoff-notify"
)

// Notifier announces a session that needs a human agent. Implementations
// return delivery errors; callers decide whether they matter.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// SNSNotifier publishes handoff events to an SNS topic.
type SNSNotifier struct {
	config *Config
	client *aws.SNSClient
	logger logger.Logger
}

func NewSNSNotifier(config *Config, client *aws.SNSClient, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (n *SNSNotifier) Notify(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if n.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
	}

	messageID, err := n.client.PublishJSON(ctx, n.config.TopicARN, n.config.Subject, EventType, event)
	if err != nil {
		metrics.CapabilityCalls.WithLabelValues("handoff", "error").Inc()
		n.logger.Error("handoff publish failed", map[string]interface{}{
			"sessionId": event.SessionID,
			"error":     err.Error(),
		})
		return err
	}

	metrics.CapabilityCalls.WithLabelValues("handoff", "ok").Inc()
	n.logger.Info("handoff published", map[string]interface{}{
		"sessionId": event.SessionID,
		"reason":    string(event.Reason),
		"messageId": messageID,
	})
	return nil
}

// LogNotifier only records the event. Used when no topic is configured.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	fields := map[string]interface{}{
		"sessionId": event.SessionID,
		"reason":    string(event.Reason),
	}
	if event.Profile != nil {
		fields["budget"] = event.Profile.Budget
	}
	n.logger.Info("handoff requested", fields)
	return nil
}
