package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

// TestParseBrowser verifies case-insensitive parsing with a fallback.
func TestParseBrowser(t *testing.T) {
	t.Parallel()

	cases := map[string]Browser{
		"chrome":   Chrome,
		"Chrome":   Chrome,
		" CHROME ": Chrome,
		"SAFARI":   Safari,
		"safari":   Safari,
		"Firefox":  Firefox,
		"edge":     DefaultFallback,
		"":         DefaultFallback,
	}
	for name, want := range cases {
		assert.Equal(t, want, ParseBrowser(name), "browser name %q", name)
	}
}

// TestBuildChromeVariantForChromeAndUnknown ensures Chrome and unknown names get Chrome options.
func TestBuildChromeVariantForChromeAndUnknown(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"chrome", "Chrome", "edge"} {
		opts := Build(Environment{Browser: name})
		require.Equal(t, "chrome", opts.Capabilities["browserName"], "browser %q", name)
		_, ok := opts.Capabilities[chrome.CapabilitiesKey].(chrome.Capabilities)
		require.True(t, ok, "expected chrome options for %q", name)
	}

	assert.Equal(t, DefaultFallback, Build(Environment{Browser: "edge"}).Browser)
	assert.Equal(t, Chrome, Build(Environment{Browser: "Chrome"}).Browser)
}

// TestBuildSafariIsCaseInsensitive ensures any casing of safari selects Safari.
func TestBuildSafariIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	opts := Build(Environment{Browser: "SAFARI"})
	require.Equal(t, Safari, opts.Browser)
	require.Equal(t, "safari", opts.Capabilities["browserName"])
	_, hasChrome := opts.Capabilities[chrome.CapabilitiesKey]
	require.False(t, hasChrome)
}

// TestBuildFirefox verifies Firefox capabilities.
func TestBuildFirefox(t *testing.T) {
	t.Parallel()

	opts := Build(Environment{Browser: "firefox"})
	require.Equal(t, Firefox, opts.Browser)
	_, ok := opts.Capabilities[firefox.CapabilitiesKey].(firefox.Capabilities)
	require.True(t, ok)
}

// TestBuildAttachesVendorOptions ensures only configured vendor keys are sent.
func TestBuildAttachesVendorOptions(t *testing.T) {
	t.Parallel()

	opts := Build(Environment{
		SessionName: "iOS_Safari",
		Browser:     "safari",
		Device:      "iPhone 14",
		OSVersion:   "14.0",
		RealMobile:  true,
	})
	bag, ok := opts.Capabilities[VendorOptionsKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"osVersion":   "14.0",
		"deviceName":  "iPhone 14",
		"sessionName": "iOS_Safari",
		"realMobile":  "true",
	}, bag)
}

// TestDefaultEnvironments verifies the default matrix.
func TestDefaultEnvironments(t *testing.T) {
	t.Parallel()

	envs := DefaultEnvironments()
	require.Len(t, envs, 5)
	assert.Equal(t, "Win_Chrome", envs[0].Name())
	assert.Equal(t, "unknown", Environment{}.Name())
}
