package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"hrflow/internal/domain/leave"
	"hrflow/internal/platform/telemetry"
)

// SQSClient is the subset of the SQS client the publisher needs.
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends request decision events to a single queue.
type SQSPublisher struct {
	client   SQSClient
	queueURL string
}

func NewSQSPublisher(client SQSClient, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, evt leave.DecisionEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	attrs := telemetry.InjectTraceContext(ctx)
	attrs["EventType"] = types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(evt.Type),
	}
	attrs["RequestKind"] = types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(string(evt.Kind)),
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s to events queue: %w", evt.Type, err)
	}
	return nil
}

type Noop struct{}

func (Noop) Publish(context.Context, leave.DecisionEvent) error { return nil }
