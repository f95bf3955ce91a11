package analytics

import (
	"strings"

	"github.com/folio/folio/internal/model"
)

// Device types.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

type uaRule struct {
	token string
	name  string
}

// Order matters: Edge and Opera carry "chrome", Chrome carries "safari".
var browserRules = []uaRule{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"opera", "Opera"},
	{"samsungbrowser", "Samsung Internet"},
	{"firefox", "Firefox"},
	{"fxios", "Firefox"},
	{"crios", "Chrome"},
	{"chrome", "Chrome"},
	{"safari", "Safari"},
}

var osRules = []uaRule{
	{"windows", "Windows"},
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"android", "Android"},
	{"cros", "ChromeOS"},
	{"mac os", "macOS"},
	{"macintosh", "macOS"},
	{"linux", "Linux"},
}

// ParseUserAgent classifies a User-Agent into device type, browser and OS.
// Unrecognized components are returned as empty strings except the device
// type, which falls back to "unknown".
func ParseUserAgent(userAgent string) model.DeviceInfo {
	ua := strings.ToLower(userAgent)
	return model.DeviceInfo{
		DeviceType: detectDeviceType(ua),
		Browser:    match(ua, browserRules),
		OS:         match(ua, osRules),
	}
}

func detectDeviceType(ua string) string {
	for _, keyword := range []string{"tablet", "ipad"} {
		if strings.Contains(ua, keyword) {
			return DeviceTablet
		}
	}
	// Android tablets omit "mobile".
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobile") {
		return DeviceTablet
	}

	for _, keyword := range []string{"mobile", "android", "iphone", "ipod", "blackberry", "windows phone"} {
		if strings.Contains(ua, keyword) {
			return DeviceMobile
		}
	}

	if strings.Contains(ua, "mozilla") || strings.Contains(ua, "windows") || strings.Contains(ua, "macintosh") {
		return DeviceDesktop
	}

	return DeviceUnknown
}

func match(ua string, rules []uaRule) string {
	for _, rule := range rules {
		if strings.Contains(ua, rule.token) {
			return rule.name
		}
	}
	return ""
}
