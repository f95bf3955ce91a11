// Package access decides whether a request may reach a gated route family.
//
// Each Policy owns one path prefix. The gate middleware asks the first
// matching policy for a Decision before any route handler runs.
package access

import "net/http"

// Outcome is the verdict of a policy.
type Outcome int

const (
	// Allow passes the request to the route handler.
	Allow Outcome = iota
	// Redirect sends the client to Decision.Location.
	Redirect
	// NotFound answers exactly like a route that does not exist.
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Decision is a policy verdict plus the cookies to write with the response.
type Decision struct {
	Outcome  Outcome
	Location string
	Cookies  []*http.Cookie
}

// Policy guards one route family.
type Policy interface {
	// Name labels the policy in logs and metrics.
	Name() string
	// Matches reports whether path belongs to the guarded family.
	Matches(path string) bool
	// Decide evaluates the request. It never fails; malformed input yields a denial.
	Decide(r *http.Request) Decision
}

func allow() Decision { return Decision{Outcome: Allow} }

func notFound(cookies ...*http.Cookie) Decision {
	return Decision{Outcome: NotFound, Cookies: cookies}
}

func redirect(location string, cookies ...*http.Cookie) Decision {
	return Decision{Outcome: Redirect, Location: location, Cookies: cookies}
}
