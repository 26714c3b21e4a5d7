// Package grid models the remote browser matrix: environments, the
// capabilities sent to the grid, and the session status protocol.
package grid

import "strings"

// Browser is the closed set of browser variants a session can request.
type Browser int

const (
	// DefaultFallback is selected for any browser name outside the known set.
	// It builds the same options as Chrome.
	DefaultFallback Browser = iota
	Chrome
	Safari
	Firefox
)

// String returns the lowercase browser name sent to the grid.
func (b Browser) String() string {
	switch b {
	case Chrome:
		return "chrome"
	case Safari:
		return "safari"
	case Firefox:
		return "firefox"
	default:
		return "fallback"
	}
}

// ParseBrowser maps a free-form browser name onto a Browser variant.
// Matching is case-insensitive and unknown names map to DefaultFallback.
func ParseBrowser(name string) Browser {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chrome":
		return Chrome
	case "safari":
		return Safari
	case "firefox":
		return Firefox
	default:
		return DefaultFallback
	}
}

// Environment describes one requested browser/device configuration.
// Values are read from static configuration and never mutated.
type Environment struct {
	SessionName string `mapstructure:"session_name" yaml:"session_name"`
	Browser     string `mapstructure:"browser" yaml:"browser"`
	OS          string `mapstructure:"os" yaml:"os"`
	OSVersion   string `mapstructure:"os_version" yaml:"os_version"`
	Device      string `mapstructure:"device" yaml:"device"`
	RealMobile  bool   `mapstructure:"real_mobile" yaml:"real_mobile"`
}

// Name returns the session name, or "unknown" when none was configured.
func (e Environment) Name() string {
	if strings.TrimSpace(e.SessionName) == "" {
		return "unknown"
	}
	return e.SessionName
}

// DefaultEnvironments returns the desktop and mobile matrix used when the
// configuration does not list any environments.
func DefaultEnvironments() []Environment {
	return []Environment{
		{SessionName: "Win_Chrome", Browser: "Chrome", OS: "Windows", OSVersion: "11"},
		{SessionName: "Mac_Safari", Browser: "Safari", OS: "OS X", OSVersion: "Ventura"},
		{SessionName: "Win_Firefox", Browser: "Firefox", OS: "Windows", OSVersion: "10"},
		{SessionName: "iOS_Safari", Browser: "safari", Device: "iPhone 14", OSVersion: "14.0", RealMobile: true},
		{SessionName: "Android_Chrome", Browser: "chrome", Device: "Samsung Galaxy S23", OSVersion: "13.0", RealMobile: true},
	}
}
