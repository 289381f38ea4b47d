package email

import (
	"context"
	"errors"
	"time"
)

// Sender define la interfaz para envio de correos de autenticacion.
type Sender interface {
	SendMagicLink(ctx context.Context, toEmail string, linkURL string, expiresAt time.Time) error
	SendLinkConfirmation(ctx context.Context, toEmail string, providerName string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendMagicLink(_ context.Context, _ string, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendLinkConfirmation(_ context.Context, _ string, _ string) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
