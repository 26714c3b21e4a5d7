package grid

import (
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

// VendorOptionsKey is the capability under which platform metadata is sent.
const VendorOptionsKey = "bstack:options"

// SessionOptions is the browser-specific configuration for one session.
type SessionOptions struct {
	Browser      Browser
	Capabilities selenium.Capabilities
}

// Build maps an environment onto session options. It never fails: unknown
// browsers resolve to DefaultFallback, which carries Chrome options.
func Build(env Environment) SessionOptions {
	browser := ParseBrowser(env.Browser)
	caps := selenium.Capabilities{}

	switch browser {
	case Safari:
		caps["browserName"] = Safari.String()
	case Firefox:
		caps["browserName"] = Firefox.String()
		caps.AddFirefox(firefox.Capabilities{})
	case Chrome, DefaultFallback:
		caps["browserName"] = Chrome.String()
		caps.AddChrome(chrome.Capabilities{W3C: true})
	}

	caps[VendorOptionsKey] = vendorOptions(env)
	return SessionOptions{Browser: browser, Capabilities: caps}
}

func vendorOptions(env Environment) map[string]any {
	opts := map[string]any{}
	set := func(key, value string) {
		if value != "" {
			opts[key] = value
		}
	}
	set("os", env.OS)
	set("osVersion", env.OSVersion)
	set("deviceName", env.Device)
	set("sessionName", env.SessionName)
	if env.RealMobile {
		opts["realMobile"] = "true"
	}
	return opts
}
