package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// AWSSESMailer sends emails using AWS SES
type AWSSESMailer struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESMailer creates a new AWS SES mailer
func NewAWSSESMailer(region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESMailer, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESMailer{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

// SendPasswordResetEmail sends a password reset email carrying the plain token
func (s *AWSSESMailer) SendPasswordResetEmail(ctx context.Context, email, identityID, token string, expiresAt time.Time) error {
	resetLink := fmt.Sprintf("%s/reset-password?id=%s&token=%s", s.baseURL, identityID, token)
	validFor := time.Until(expiresAt).Round(time.Minute)

	textBody := fmt.Sprintf(`Reset Your Password

We received a request to reset the password for this account. Click the link below to choose a new password:

%s

This link will expire in %s and can be used only once.

Didn't request this?
If you didn't ask to reset your password, you can ignore this email. Your password will not be changed.

This is an automated message. Please do not reply to this email.
`, resetLink, validFor)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body>
    <h1>Reset Your Password</h1>
    <p>We received a request to reset the password for this account. Click the link below to choose a new password:</p>
    <p><a href="%s">Reset Password</a></p>
    <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
    <p><strong>This link will expire in %s and can be used only once.</strong></p>
    <p><strong>Didn't request this?</strong><br>
    If you didn't ask to reset your password, you can ignore this email. Your password will not be changed.</p>
    <p>This is an automated message. Please do not reply to this email.</p>
</body>
</html>
`, resetLink, resetLink, validFor)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Reset your password"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send reset email via SES", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("reset email queued", slog.String("message_id", *result.MessageId))

	return nil
}
