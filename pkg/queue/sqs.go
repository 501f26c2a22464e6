// Package queue publishes payment events to AWS SQS.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

type Options struct {
	Region    string
	AccessKey string
	Secret    string
	QueueURL  string
}

// SendAPI is the part of the SQS client the publisher needs.
type SendAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSPublisher struct {
	client   SendAPI
	queueURL string
	log      *zap.Logger
}

// NewSQSPublisher loads AWS config. Static keys are used when both are set, otherwise the default chain.
func NewSQSPublisher(ctx context.Context, opts Options, logger *zap.Logger) (*SQSPublisher, error) {
	if opts.QueueURL == "" {
		return nil, errors.New("queue url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loadOpts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.Secret != "" {
		logger.Info("[Queue] using static AWS credentials", zap.String("region", opts.Region))
		loadOpts = append(loadOpts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.Secret, ""),
		))
	} else {
		logger.Info("[Queue] using default AWS credentials", zap.String("region", opts.Region))
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSQSPublisherWithClient(sqs.NewFromConfig(cfg), opts.QueueURL, logger), nil
}

func NewSQSPublisherWithClient(client SendAPI, queueURL string, logger *zap.Logger) *SQSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQSPublisher{client: client, queueURL: queueURL, log: logger}
}

// Publish sends v as a JSON message tagged with an event-type attribute.
func (p *SQSPublisher) Publish(ctx context.Context, eventType string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s event: %w", eventType, err)
	}
	p.log.Info("[Queue] event published",
		zap.String("event_type", eventType),
		zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
