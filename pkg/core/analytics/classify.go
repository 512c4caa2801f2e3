// Package analytics holds the pure rollup helpers shared by the report
// builder and by stores that group events in-process.
package analytics

import (
	"net/url"
	"strings"
)

const (
	Direct  = "Direct"
	Unknown = "Unknown"
)

// browserOrder is checked top to bottom. Chrome must precede Safari because
// Chrome user agents also carry a Safari token.
var browserOrder = []struct {
	token string
	name  string
}{
	{"Chrome", "Chrome"},
	{"Firefox", "Firefox"},
	{"Safari", "Safari"},
	{"Edge", "Edge"},
	{"Opera", "Opera"},
}

// Browser classifies a user agent string.
func Browser(userAgent string) string {
	for _, b := range browserOrder {
		if strings.Contains(userAgent, b.token) {
			return b.name
		}
	}
	return "Other"
}

// DeviceClass labels a screen width.
func DeviceClass(width int) string {
	switch {
	case width < 768:
		return "Mobile"
	case width < 1024:
		return "Tablet"
	default:
		return "Desktop"
	}
}

// DeviceClassOf is DeviceClass for an optional width.
func DeviceClassOf(width *int) string {
	if width == nil {
		return Unknown
	}
	return DeviceClass(*width)
}

// ReferrerHost returns the hostname of a referrer URL, or Direct when the
// referrer is empty or not an absolute URL.
func ReferrerHost(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return Direct
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Hostname() == "" {
		return Direct
	}
	return u.Hostname()
}

// KnownGeo reports whether a geo field carries a usable value.
func KnownGeo(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, Unknown)
}

// IsAdminPage reports whether a tracked path belongs to the admin surface.
func IsAdminPage(page string) bool {
	return strings.Contains(strings.ToLower(page), "admin")
}
