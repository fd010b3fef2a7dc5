package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ngduyd/ecommerce-payments/pkg/dispatcher"
)

// Config is the queue material for the outbound payment event stream.
type Config struct {
	Region    string
	AccessKey string
	Secret    string
	QueueURL  string
}

// SQSNotifier publishes committed payment outcomes onto an SQS queue
// for downstream consumers (fulfilment, accounting). Local state is
// already committed when a message goes out; delivery is best effort.
type SQSNotifier struct {
	client   *sqs.Client
	queueURL string
}

func NewSQS(ctx context.Context, cfg Config) (*SQSNotifier, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("sqs queue url is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.Secret, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSNotifier{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.QueueURL,
	}, nil
}

func (n *SQSNotifier) PublishPaymentEvent(ctx context.Context, event dispatcher.PaymentEventMessage) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	_, err = n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send payment event: %w", err)
	}
	return nil
}
