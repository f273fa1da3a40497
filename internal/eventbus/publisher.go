package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"fastchannels/internal/logging"
	"fastchannels/internal/services"
)

// Publisher emits pipeline events downstream.
type Publisher interface {
	Publish(ctx context.Context, detailType string, detail any) (string, error)
}

// PutEventsAPI is the slice of the EventBridge client the publisher needs.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher publishes events to one bus under one source name.
type EventBridgePublisher struct {
	client  PutEventsAPI
	busName string
	source  string
	logger  *slog.Logger
}

// NewEventBridgePublisher constructs a publisher for the given bus.
func NewEventBridgePublisher(client PutEventsAPI, busName, source string, logger *slog.Logger) *EventBridgePublisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EventBridgePublisher{client: client, busName: busName, source: source, logger: logger}
}

// Publish sends one event and returns its bus-assigned ID. A rejected entry is
// reported as a transient failure so the whole stage is redelivered.
func (p *EventBridgePublisher) Publish(ctx context.Context, detailType string, detail any) (string, error) {
	body, err := json.Marshal(detail)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "eventbus", "publish", "encode detail", err)
	}
	entry := types.PutEventsRequestEntry{
		Detail:     aws.String(string(body)),
		DetailType: aws.String(detailType),
		Source:     aws.String(p.source),
	}
	if p.busName != "" {
		entry.EventBusName = aws.String(p.busName)
	}
	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: []types.PutEventsRequestEntry{entry}})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "eventbus", "publish", detailType, err)
	}
	if out.FailedEntryCount > 0 || len(out.Entries) == 0 {
		msg := "entry rejected"
		if len(out.Entries) > 0 {
			msg = fmt.Sprintf("%s: %s", aws.ToString(out.Entries[0].ErrorCode), aws.ToString(out.Entries[0].ErrorMessage))
		}
		return "", services.Wrap(services.ErrTransient, "eventbus", "publish", msg, nil)
	}
	id := aws.ToString(out.Entries[0].EventId)
	logging.WithContext(ctx, p.logger).Info("event published",
		logging.String(logging.FieldEventType, "event_published"),
		logging.String("detail_type", detailType),
		logging.String("published_event_id", id),
	)
	return id, nil
}
