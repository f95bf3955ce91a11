package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/folio/folio/internal/model"
	"github.com/folio/folio/internal/service"
)

type fakeSubmitter struct {
	got []model.ContactMessage
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, msg model.ContactMessage) error {
	f.got = append(f.got, msg)
	return f.err
}

func TestContactHandler_Submit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"sent", `{"name":"Ada","email":"ada@example.com","message":"Hi"}`, nil, http.StatusOK, `"success":true`},
		{"invalid email", `{"name":"Ada","email":"nope","message":"Hi"}`, service.ErrInvalidEmail, http.StatusBadRequest, "INVALID_CONTACT"},
		{"invalid name", `{"name":"","email":"ada@example.com","message":"Hi"}`, fmt.Errorf("wrapped: %w", service.ErrInvalidName), http.StatusBadRequest, "INVALID_CONTACT"},
		{"relay failed", `{"name":"Ada","email":"ada@example.com","message":"Hi"}`, service.ErrRelayFailed, http.StatusBadGateway, "RELAY_FAILED"},
		{"unexpected", `{"name":"Ada","email":"ada@example.com","message":"Hi"}`, fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSubmitter{err: tt.err}
			h := NewContactHandler(svc, testLogger())

			rec := serve(http.HandlerFunc(h.Submit), http.MethodPost, "/api/contact", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Len(t, svc.got, 1)
		})
	}
}

func TestContactHandler_ForwardsFields(t *testing.T) {
	svc := &fakeSubmitter{}
	h := NewContactHandler(svc, testLogger())

	serve(http.HandlerFunc(h.Submit), http.MethodPost, "/api/contact", `{"name":"Ada","email":"ada@example.com","message":"Hello there"}`)

	assert.Equal(t, []model.ContactMessage{{Name: "Ada", Email: "ada@example.com", Message: "Hello there"}}, svc.got)
}

func TestContactHandler_InvalidJSON(t *testing.T) {
	svc := &fakeSubmitter{}
	h := NewContactHandler(svc, testLogger())

	rec := serve(http.HandlerFunc(h.Submit), http.MethodPost, "/api/contact", "{")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.got)
}
