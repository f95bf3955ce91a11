package access

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// SessionCookieName is the admin session cookie.
	SessionCookieName = "admin_session"

	// SessionMaxAge is how long a minted session stays valid.
	SessionMaxAge = 24 * time.Hour

	sessionFlag = "authenticated"
)

// ErrMalformedSession is returned for cookie values that are not "authenticated.<millis>".
var ErrMalformedSession = errors.New("malformed session token")

// MintSession returns a session token issued at the given time.
func MintSession(at time.Time) string {
	return sessionFlag + "." + strconv.FormatInt(at.UnixMilli(), 10)
}

// ParseSession returns the issue time embedded in a session token.
func ParseSession(value string) (time.Time, error) {
	flag, millis, ok := strings.Cut(value, ".")
	if !ok || flag != sessionFlag {
		return time.Time{}, ErrMalformedSession
	}
	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return time.Time{}, ErrMalformedSession
	}
	return time.UnixMilli(ms), nil
}

func sessionCookie(value, path string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     path,
		MaxAge:   int(SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func clearedSessionCookie(path string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
