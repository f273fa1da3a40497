package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"fastchannels/internal/config"
	"fastchannels/internal/logging"
	"fastchannels/internal/playback"
)

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyPlaybackURLs(ctx context.Context, urls []playback.URL) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds the notifiers configured in cfg. sns may be nil when no
// topic ARN is configured.
func NewService(cfg *config.Config, sns PublishAPI, logger *slog.Logger) Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	var notifiers multiService
	if arn := strings.TrimSpace(cfg.Notifications.SNSTopicARN); arn != "" {
		if sns == nil {
			logging.WarnWithContext(logger, "sns topic configured without a client", "sns_unavailable",
				logging.String("topic_arn", arn),
				logging.String(logging.FieldImpact, "email notifications are not sent"),
			)
		} else {
			notifiers = append(notifiers, newSNSService(sns, arn, cfg.Stack.Name, cfg.Notifications.Errors))
		}
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		notifiers = append(notifiers, newNtfyService(topic, cfg.Stack.Name, timeout, cfg.Notifications.Errors))
	}
	switch len(notifiers) {
	case 0:
		logger.Debug("notifications disabled", logging.String(logging.FieldEventType, "notifications_disabled"))
		return noopService{}
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}

// multiService fans every notification out to all notifiers and joins
// their failures.
type multiService []Service

func (m multiService) NotifyPlaybackURLs(ctx context.Context, urls []playback.URL) error {
	var errs []error
	for _, svc := range m {
		errs = append(errs, svc.NotifyPlaybackURLs(ctx, urls))
	}
	return errors.Join(errs...)
}

func (m multiService) NotifyError(ctx context.Context, err error, label string) error {
	var errs []error
	for _, svc := range m {
		errs = append(errs, svc.NotifyError(ctx, err, label))
	}
	return errors.Join(errs...)
}

func (m multiService) TestNotification(ctx context.Context) error {
	var errs []error
	for _, svc := range m {
		errs = append(errs, svc.TestNotification(ctx))
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) NotifyPlaybackURLs(context.Context, []playback.URL) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
