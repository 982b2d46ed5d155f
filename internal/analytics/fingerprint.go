package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives a stable visitor token from the network address
// and the client signature (User-Agent). This identifies repeat
// visitors beyond the address alone. Absent inputs are treated as empty
// strings, never as errors.
func Fingerprint(address, signature string) string {
	h := sha256.Sum256([]byte(address + ":" + signature))
	return hex.EncodeToString(h[:])
}

// ClientInfo holds the coarse categories derived from a client signature.
type ClientInfo struct {
	DeviceClass string
	Browser     string
	OS          string
}

// ClassifyClient extracts device class, browser and OS from a raw
// User-Agent string via case-insensitive substring matching. An empty
// signature yields "unknown" for all three fields rather than falling
// through to "desktop".
func ClassifyClient(signature string) ClientInfo {
	if signature == "" {
		return ClientInfo{DeviceClass: "unknown", Browser: "unknown", OS: "unknown"}
	}

	sig := strings.ToLower(signature)

	deviceClass := "desktop"
	if strings.Contains(sig, "mobile") || strings.Contains(sig, "android") || strings.Contains(sig, "iphone") {
		deviceClass = "mobile"
	} else if strings.Contains(sig, "tablet") || strings.Contains(sig, "ipad") {
		deviceClass = "tablet"
	}

	// Order matters: Chrome-based agents also contain "safari", and
	// Edge contains "chrome".
	browser := "Other"
	switch {
	case strings.Contains(sig, "edg"):
		browser = "Edge"
	case strings.Contains(sig, "chrome"):
		browser = "Chrome"
	case strings.Contains(sig, "firefox"):
		browser = "Firefox"
	case strings.Contains(sig, "safari"):
		browser = "Safari"
	case strings.Contains(sig, "opera") || strings.Contains(sig, "opr"):
		browser = "Opera"
	}

	os := "Other"
	switch {
	case strings.Contains(sig, "windows"):
		os = "Windows"
	case strings.Contains(sig, "mac"):
		os = "macOS"
	case strings.Contains(sig, "iphone") || strings.Contains(sig, "ipad"):
		os = "iOS"
	case strings.Contains(sig, "android"):
		os = "Android"
	case strings.Contains(sig, "linux"):
		os = "Linux"
	}

	return ClientInfo{DeviceClass: deviceClass, Browser: browser, OS: os}
}
