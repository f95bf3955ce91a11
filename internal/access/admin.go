package access

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SecretParam is the query parameter carrying the admin secret.
const SecretParam = "secret"

// AdminPolicy gates the admin route family behind a secret link and a
// short-lived session cookie. Every denial is a disguised not-found.
type AdminPolicy struct {
	secret string
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewAdminPolicy creates the admin policy. secret and prefix must already be
// normalized; an empty secret denies every request.
func NewAdminPolicy(secret, prefix string, logger *slog.Logger) *AdminPolicy {
	return &AdminPolicy{
		secret: secret,
		prefix: prefix,
		logger: logger.With("component", "access.admin"),
		now:    time.Now,
	}
}

// Name implements Policy.
func (p *AdminPolicy) Name() string { return "admin" }

// Matches implements Policy.
func (p *AdminPolicy) Matches(path string) bool {
	return path == p.prefix || strings.HasPrefix(path, p.prefix+"/")
}

// Decide implements Policy. Checks run in order and the first match wins.
func (p *AdminPolicy) Decide(r *http.Request) Decision {
	// Bots and an unconfigured secret are denied before anything else is read.
	if p.secret == "" || IsAutomated(r.UserAgent()) {
		return notFound()
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		issued, err := ParseSession(cookie.Value)
		if err == nil && p.now().Sub(issued) < SessionMaxAge {
			return allow()
		}
		return notFound(clearedSessionCookie(p.prefix))
	}

	query := r.URL.Query()
	if !query.Has(SecretParam) {
		return notFound()
	}

	if subtle.ConstantTimeCompare([]byte(query.Get(SecretParam)), []byte(p.secret)) != 1 {
		p.logger.Warn("admin secret rejected",
			slog.String("ip", ClientIP(r)),
			slog.String("user_agent", r.UserAgent()),
		)
		return notFound()
	}

	p.logger.Info("admin authenticated",
		slog.String("ip", ClientIP(r)),
	)
	return redirect(withoutSecret(r.URL), sessionCookie(MintSession(p.now()), p.prefix))
}

// withoutSecret returns the request target with the secret parameter removed.
func withoutSecret(u *url.URL) string {
	query := u.Query()
	query.Del(SecretParam)

	clean := url.URL{Path: u.Path, RawPath: u.RawPath, RawQuery: query.Encode()}
	return clean.RequestURI()
}
