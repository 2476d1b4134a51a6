// internal/notify/notifier.go

// Package notify sends optional run completion notifications over
// SES email and SNS SMS. Delivery failures never affect the run.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"compliance-agent/internal/common/config"
	apperrors "compliance-agent/internal/common/errors"
	"compliance-agent/internal/models"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type emailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type smsSender interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Notifier struct {
	cfg    config.NotificationConfig
	email  emailSender
	sms    smsSender
	logger Logger
}

// NewNotifier builds the notifier. AWS clients are only constructed
// when at least one channel is enabled.
func NewNotifier(ctx context.Context, cfg config.NotificationConfig, log Logger) (*Notifier, error) {
	n := &Notifier{
		cfg:    cfg,
		logger: log,
	}

	if !cfg.Email.Enabled && !cfg.SMS.Enabled {
		return n, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Email.Enabled {
		n.email = ses.NewFromConfig(awsCfg)
	}
	if cfg.SMS.Enabled {
		n.sms = sns.NewFromConfig(awsCfg)
	}
	return n, nil
}

// PipelineCompleted notifies the configured channels about a finished
// run. Errors are logged and swallowed.
func (n *Notifier) PipelineCompleted(ctx context.Context, result models.PipelineResult) {
	subject := fmt.Sprintf("Content pipeline completed: %s", result.Topic)
	body := fmt.Sprintf(
		"Run %s finished.\n\nTopic: %s\nAccuracy: %d\nEngagement: %d\nStages: %d\nSources: %d\n\n%s",
		result.RunID, result.Topic, result.AccuracyScore, result.EngagementScore,
		len(result.Stages), len(result.Sources), result.FinalContent,
	)

	if n.email != nil {
		n.sendEmail(ctx, subject, body)
	}
	if n.sms != nil {
		n.sendSMS(ctx, fmt.Sprintf("%s (accuracy %d, engagement %d)", subject, result.AccuracyScore, result.EngagementScore))
	}
}

func (n *Notifier) sendEmail(ctx context.Context, subject, body string) {
	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.cfg.Email.ToEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		stdErr := apperrors.NewNotificationSendFailedError("email", err)
		n.logger.Warn("Email notification failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		return
	}
	n.logger.Info("Email notification sent", map[string]interface{}{"to": n.cfg.Email.ToEmail})
}

func (n *Notifier) sendSMS(ctx context.Context, message string) {
	_, err := n.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(n.cfg.SMS.PhoneNumber),
		Message:     aws.String(message),
	})
	if err != nil {
		stdErr := apperrors.NewNotificationSendFailedError("sms", err)
		n.logger.Warn("SMS notification failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		return
	}
	n.logger.Info("SMS notification sent", map[string]interface{}{"to": n.cfg.SMS.PhoneNumber})
}
