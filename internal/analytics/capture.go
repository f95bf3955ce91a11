package analytics

import (
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

const maxMetaLength = 500

// botPatterns are User-Agent substrings (lowercase) of crawlers and tools
// whose page views are not recorded.
var botPatterns = []string{
	"bot", "crawler", "spider", "scraper", "slurp",
	"facebookexternalhit", "embedly", "quora link preview",
	"outbrain", "pinterest", "bytespider", "headless",
	"lighthouse", "wget", "curl", "python", "php",
}

// IsBot reports whether a User-Agent belongs to automated traffic.
// An empty User-Agent counts as a bot.
func IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return true
	}
	for _, pattern := range botPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}

// VisitorHash creates a privacy-safe visitor identifier for clients that do
// not send their own. The daily salt rotates at midnight UTC, so the same
// visitor cannot be followed across days.
func VisitorHash(ip, userAgent string, at time.Time) string {
	salt := "folio:" + at.UTC().Format("2006-01-02")
	sum := blake2b.Sum256([]byte(ip + "|" + userAgent + "|" + salt))
	return hex.EncodeToString(sum[:8])
}

// SanitizeReferrer strips query parameters and fragments and caps the length.
// A referrer that does not parse is kept verbatim (truncated) so the
// dashboard still shows it as its own bucket.
func SanitizeReferrer(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err == nil && parsed.Host != "" {
		parsed.RawQuery = ""
		parsed.Fragment = ""
		parsed.User = nil
		ref = parsed.String()
	}

	return truncate(ref, maxMetaLength)
}

// IsSelfReferral reports whether ref points back at the site itself.
func IsSelfReferral(ref, siteHost string) bool {
	if ref == "" || siteHost == "" {
		return false
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), siteHost)
}

// ExtractCountryCode returns the ISO alpha-2 code from a CDN geo header.
// Returns empty string if the header is missing, unknown ("XX") or invalid.
func ExtractCountryCode(header string) string {
	header = strings.TrimSpace(header)
	if len(header) != 2 || strings.EqualFold(header, "XX") {
		return ""
	}
	return strings.ToUpper(header)
}

// NormalizePath drops query string and fragment and trims a trailing slash.
func NormalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return truncate(path, maxMetaLength)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
