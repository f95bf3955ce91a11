package analytics

import (
	"errors"
	"fmt"
	"strings"
)

const maxIDLength = 128

// ErrInvalidPayload is wrapped by every validation failure.
var ErrInvalidPayload = errors.New("invalid page view")

// ValidatePageViewPayload validates page-view payload fields.
func ValidatePageViewPayload(payload PageViewPayload) error {
	if payload.PagePath == "" {
		return fmt.Errorf("%w: page_path is required", ErrInvalidPayload)
	}
	if !strings.HasPrefix(payload.PagePath, "/") {
		return fmt.Errorf("%w: page_path must start with /", ErrInvalidPayload)
	}
	if len(payload.PagePath) > maxMetaLength {
		return fmt.Errorf("%w: page_path too long", ErrInvalidPayload)
	}
	if payload.VisitorID == "" {
		return fmt.Errorf("%w: visitor_id is required", ErrInvalidPayload)
	}
	if len(payload.VisitorID) > maxIDLength || len(payload.SessionID) > maxIDLength {
		return fmt.Errorf("%w: visitor_id or session_id too long", ErrInvalidPayload)
	}
	if payload.Country != "" && len(payload.Country) != 2 {
		return fmt.Errorf("%w: country must be 2 chars", ErrInvalidPayload)
	}
	if payload.ViewedAt <= 0 {
		return fmt.Errorf("%w: viewed_at must be set", ErrInvalidPayload)
	}
	if len(payload.Referrer) > maxMetaLength {
		return fmt.Errorf("%w: referrer too long", ErrInvalidPayload)
	}
	return nil
}
