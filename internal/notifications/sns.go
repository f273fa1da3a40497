package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"gopkg.in/yaml.v3"

	"fastchannels/internal/eventbus"
	"fastchannels/internal/playback"
	"fastchannels/internal/services"
)

// SNS rejects subjects longer than this.
const maxSubjectLength = 100

// PublishAPI is the slice of the SNS client the notifier needs.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsService struct {
	client PublishAPI
	topic  string
	stack  string
	errors bool
}

func newSNSService(client PublishAPI, topic, stack string, notifyErrors bool) *snsService {
	return &snsService{client: client, topic: topic, stack: stack, errors: notifyErrors}
}

// RenderPlaybackURLs renders the event detail as YAML for email readers.
func RenderPlaybackURLs(urls []playback.URL) (string, error) {
	body, err := yaml.Marshal(eventbus.PlaybackURLsDetail{PlaybackURLs: urls})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Subject returns the email subject for a stack's playback URL batch.
func Subject(stack string) string {
	if strings.TrimSpace(stack) == "" {
		stack = "FAST-Channels"
	}
	return truncate(fmt.Sprintf("[%s] New playback URLs available", stack))
}

func (s *snsService) NotifyPlaybackURLs(ctx context.Context, urls []playback.URL) error {
	body, err := RenderPlaybackURLs(urls)
	if err != nil {
		return services.Wrap(services.ErrValidation, "notify", "render yaml", "", err)
	}
	return s.publish(ctx, Subject(s.stack), body)
}

func (s *snsService) NotifyError(ctx context.Context, err error, label string) error {
	if !s.errors {
		return nil
	}
	subject := truncate(fmt.Sprintf("[%s] %s failed", s.stack, title(label)))
	body := "unknown"
	if err != nil {
		body = strings.TrimSpace(err.Error())
	}
	return s.publish(ctx, subject, body)
}

func (s *snsService) TestNotification(ctx context.Context) error {
	return s.publish(ctx, truncate(fmt.Sprintf("[%s] Notification test", s.stack)), "Notification system test")
}

func (s *snsService) publish(ctx context.Context, subject, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topic),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "sns publish", s.topic, err)
	}
	return nil
}

func truncate(subject string) string {
	if len(subject) <= maxSubjectLength {
		return subject
	}
	return subject[:maxSubjectLength]
}
