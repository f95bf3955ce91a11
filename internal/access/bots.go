package access

import "strings"

// automationTokens are matched case-insensitively against the User-Agent.
var automationTokens = []string{
	"bot", "crawler", "spider", "scraper",
	"wget", "curl", "python", "php",
}

// IsAutomated reports whether the User-Agent looks like a bot or script.
// An empty User-Agent is not treated as automated.
func IsAutomated(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, token := range automationTokens {
		if strings.Contains(ua, token) {
			return true
		}
	}
	return false
}
