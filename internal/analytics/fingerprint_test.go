package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		a := Fingerprint("203.0.113.9", "Mozilla/5.0")
		b := Fingerprint("203.0.113.9", "Mozilla/5.0")
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("DistinctInputs", func(t *testing.T) {
		a := Fingerprint("203.0.113.9", "Mozilla/5.0")
		b := Fingerprint("203.0.113.10", "Mozilla/5.0")
		c := Fingerprint("203.0.113.9", "curl/8.0")
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, a, c)
	})

	t.Run("EmptyInputs", func(t *testing.T) {
		assert.Len(t, Fingerprint("", ""), 64)
	})
}

func TestClassifyClient(t *testing.T) {
	t.Run("EmptySignatureIsUnknown", func(t *testing.T) {
		info := ClassifyClient("")
		assert.Equal(t, "unknown", info.DeviceClass)
		assert.Equal(t, "unknown", info.Browser)
		assert.Equal(t, "unknown", info.OS)
	})

	cases := []struct {
		name      string
		signature string
		device    string
		browser   string
		os        string
	}{
		{
			name:      "ChromeWindowsDesktop",
			signature: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			device:    "desktop", browser: "Chrome", os: "Windows",
		},
		{
			// Edge agents also contain "chrome" and "safari"; the edg
			// token must win.
			name:      "EdgeBeatsChrome",
			signature: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			device:    "desktop", browser: "Edge", os: "Windows",
		},
		{
			name:      "SafariMac",
			signature: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
			device:    "desktop", browser: "Safari", os: "macOS",
		},
		{
			name:      "IPhoneMobile",
			signature: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:    "mobile", browser: "Safari", os: "iOS",
		},
		{
			name:      "IPadTablet",
			signature: "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Safari/604.1",
			device:    "tablet", browser: "Safari", os: "iOS",
		},
		{
			name:      "AndroidChromeMobile",
			signature: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			device:    "mobile", browser: "Chrome", os: "Android",
		},
		{
			name:      "FirefoxLinux",
			signature: "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			device:    "desktop", browser: "Firefox", os: "Linux",
		},
		{
			name:      "ClassicOpera",
			signature: "Opera/9.80 (Windows NT 6.1) Presto/2.12.388 Version/12.16",
			device:    "desktop", browser: "Opera", os: "Windows",
		},
		{
			name:      "UnrecognizedBot",
			signature: "curl/8.4.0",
			device:    "desktop", browser: "Other", os: "Other",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := ClassifyClient(tc.signature)
			assert.Equal(t, tc.device, info.DeviceClass)
			assert.Equal(t, tc.browser, info.Browser)
			assert.Equal(t, tc.os, info.OS)
		})
	}
}
