package sns

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-identity-nosql/internal/config"
)

// Publisher delivers notifications by publishing to an SNS topic. The
// destination address and subject travel as message attributes so a
// downstream subscriber (mail relay, queue worker) can route delivery.
// It satisfies notify.Sink.
type Publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (*Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

func (p *Publisher) Send(ctx context.Context, to, subject, body string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"destination": {
				DataType:    aws.String("String"),
				StringValue: aws.String(to),
			},
		},
	})
	return err
}
