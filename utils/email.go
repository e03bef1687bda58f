package utils

import (
	"errors"
	"os"
	"strings"

	"github.com/resend/resend-go/v2"
)

// EmailSender is the thin email delivery client (Resend).
type EmailSender interface {
	Send(to string, subject string, htmlBody string) (messageId string, err error)
}

type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender() (*ResendSender, error) {
	apiKey := strings.TrimSpace(os.Getenv("RESEND_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("RESEND_API_KEY is not set")
	}
	from := strings.TrimSpace(os.Getenv("EMAIL_FROM"))
	if from == "" {
		from = "Flow <notifications@flowplatform.app>"
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}, nil
}

func (s *ResendSender) Send(to string, subject string, htmlBody string) (string, error) {
	sent, err := s.client.Emails.Send(&resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	})
	if err != nil {
		return "", err
	}
	return sent.Id, nil
}
