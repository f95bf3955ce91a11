package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/email"
	"github.com/folio/folio/internal/metrics"
	"github.com/folio/folio/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMailer struct {
	sent []email.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestValidateContact(t *testing.T) {
	valid := model.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "Hello, nice portfolio!"}

	tests := []struct {
		name    string
		mutate  func(m *model.ContactMessage)
		wantErr error
	}{
		{"valid", func(m *model.ContactMessage) {}, nil},
		{"trimmed_valid", func(m *model.ContactMessage) { m.Name = "  Ada  " }, nil},
		{"empty_name", func(m *model.ContactMessage) { m.Name = "   " }, ErrInvalidName},
		{"long_name", func(m *model.ContactMessage) { m.Name = strings.Repeat("a", 101) }, ErrInvalidName},
		{"header_injection", func(m *model.ContactMessage) { m.Name = "Ada\nBcc: x@y.z" }, ErrInvalidName},
		{"bad_email", func(m *model.ContactMessage) { m.Email = "not-an-email" }, ErrInvalidEmail},
		{"display_name_email", func(m *model.ContactMessage) { m.Email = "Ada <ada@example.com>" }, ErrInvalidEmail},
		{"short_message", func(m *model.ContactMessage) { m.Message = "hi" }, ErrInvalidMessage},
		{"long_message", func(m *model.ContactMessage) { m.Message = strings.Repeat("x", 5001) }, ErrInvalidMessage},
		{"unicode_name_counts_runes", func(m *model.ContactMessage) { m.Name = strings.Repeat("é", 100) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)
			_, err := ValidateContact(msg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestContactService_Submit(t *testing.T) {
	mailer := &fakeMailer{}
	recorder := metrics.NewInMemory()
	svc := NewContactService(mailer, "site@folio.dev", "me@folio.dev", testLogger(), recorder)

	err := svc.Submit(context.Background(), model.ContactMessage{
		Name:    " Ada ",
		Email:   "ada@example.com",
		Message: "Would love to chat about your project.",
	})
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	sent := mailer.sent[0]
	assert.Equal(t, "site@folio.dev", sent.From)
	assert.Equal(t, "me@folio.dev", sent.To)
	assert.Equal(t, "ada@example.com", sent.ReplyTo)
	assert.Equal(t, "Portfolio contact from Ada", sent.Subject)
	assert.Contains(t, sent.Text, "Would love to chat")
	assert.Equal(t, uint64(1), recorder.Snapshot().ContactMessages["sent"])
}

func TestContactService_SubmitInvalid(t *testing.T) {
	mailer := &fakeMailer{}
	recorder := metrics.NewInMemory()
	svc := NewContactService(mailer, "a@b.c", "d@e.f", testLogger(), recorder)

	err := svc.Submit(context.Background(), model.ContactMessage{Name: "Ada", Email: "bad", Message: "long enough message"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Empty(t, mailer.sent)
	assert.Equal(t, uint64(1), recorder.Snapshot().ContactMessages["invalid"])
}

func TestContactService_RelayFailure(t *testing.T) {
	mailer := &fakeMailer{err: email.ErrDeliveryFailed}
	recorder := metrics.NewInMemory()
	svc := NewContactService(mailer, "a@b.c", "d@e.f", testLogger(), recorder)

	err := svc.Submit(context.Background(), model.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "long enough message"})
	assert.ErrorIs(t, err, ErrRelayFailed)
	assert.ErrorIs(t, err, email.ErrDeliveryFailed)
	assert.Equal(t, uint64(1), recorder.Snapshot().ContactMessages["failed"])
}
