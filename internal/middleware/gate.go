package middleware

import (
	"log/slog"
	"net/http"

	"github.com/folio/folio/internal/access"
	"github.com/folio/folio/internal/metrics"
)

// Gate applies the first access policy whose prefix matches the request path.
// NotFound decisions are answered by notFound, which must be the router's own
// not-found handler so a denied route looks like a missing one.
func Gate(notFound http.Handler, logger *slog.Logger, recorder metrics.Recorder, policies ...access.Policy) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy := matchPolicy(policies, r.URL.Path)
			if policy == nil {
				next.ServeHTTP(w, r)
				return
			}

			decision := policy.Decide(r)
			recorder.IncAccessDecision(policy.Name(), decision.Outcome.String())

			for _, c := range decision.Cookies {
				http.SetCookie(w, c)
			}

			switch decision.Outcome {
			case access.Allow:
				next.ServeHTTP(w, r)
			case access.Redirect:
				http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
			default:
				logger.Debug("gated request hidden",
					slog.String("policy", policy.Name()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				notFound.ServeHTTP(w, r)
			}
		})
	}
}

func matchPolicy(policies []access.Policy, path string) access.Policy {
	for _, p := range policies {
		if p.Matches(path) {
			return p
		}
	}
	return nil
}
