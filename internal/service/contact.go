package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/folio/folio/internal/email"
	"github.com/folio/folio/internal/metrics"
	"github.com/folio/folio/internal/model"
)

// Contact errors.
var (
	ErrInvalidName    = errors.New("name must be 1-100 characters")
	ErrInvalidEmail   = errors.New("email must be a valid address")
	ErrInvalidMessage = errors.New("message must be 10-5000 characters")
	ErrRelayFailed    = errors.New("failed to relay message")
)

const (
	maxNameLength    = 100
	minMessageLength = 10
	maxMessageLength = 5000
)

// Mailer sends one email.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

// ContactService validates contact form submissions and relays them.
type ContactService struct {
	mailer  Mailer
	from    string
	to      string
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewContactService creates a new ContactService.
func NewContactService(mailer Mailer, from, to string, logger *slog.Logger, recorder metrics.Recorder) *ContactService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ContactService{
		mailer:  mailer,
		from:    from,
		to:      to,
		logger:  logger.With("component", "service.contact"),
		metrics: recorder,
	}
}

// Submit validates msg and relays it to the site owner.
func (s *ContactService) Submit(ctx context.Context, msg model.ContactMessage) error {
	msg, err := ValidateContact(msg)
	if err != nil {
		s.metrics.IncContactMessage("invalid")
		return err
	}

	err = s.mailer.Send(ctx, email.Message{
		From:    s.from,
		To:      s.to,
		Subject: "Portfolio contact from " + msg.Name,
		Text:    fmt.Sprintf("Name: %s\nEmail: %s\n\n%s", msg.Name, msg.Email, msg.Message),
		ReplyTo: msg.Email,
	})
	if err != nil {
		s.metrics.IncContactMessage("failed")
		s.logger.Error("contact relay failed", "error", err)
		return fmt.Errorf("%w: %w", ErrRelayFailed, err)
	}

	s.metrics.IncContactMessage("sent")
	return nil
}

// ValidateContact trims and validates a contact submission.
func ValidateContact(msg model.ContactMessage) (model.ContactMessage, error) {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Message = strings.TrimSpace(msg.Message)

	if n := utf8.RuneCountInString(msg.Name); n == 0 || n > maxNameLength || strings.ContainsAny(msg.Name, "\r\n") {
		return msg, ErrInvalidName
	}

	addr, err := mail.ParseAddress(msg.Email)
	if err != nil || addr.Address != msg.Email {
		return msg, ErrInvalidEmail
	}

	if n := utf8.RuneCountInString(msg.Message); n < minMessageLength || n > maxMessageLength {
		return msg, ErrInvalidMessage
	}

	return msg, nil
}
