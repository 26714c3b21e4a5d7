// Package remote opens browser sessions on a W3C WebDriver grid.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tebeka/selenium"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/gridscraper/internal/browser"
	"github.com/JakeFAU/gridscraper/internal/grid"
)

const (
	defaultWait         = 10 * time.Second
	defaultPollInterval = 250 * time.Millisecond
)

// Config controls how remote sessions are opened.
type Config struct {
	// URL is the full hub endpoint, credentials included.
	URL             string
	PageLoadTimeout time.Duration
	// OpenRate paces session creation in sessions per second. Zero disables pacing.
	OpenRate     float64
	PollInterval time.Duration
}

type newRemoteFunc func(caps selenium.Capabilities, urlPrefix string) (selenium.WebDriver, error)

// Opener implements browser.Opener against a remote grid.
type Opener struct {
	cfg       Config
	limiter   *rate.Limiter
	newRemote newRemoteFunc
}

// New creates an Opener.
func New(cfg Config) (*Opener, error) {
	if cfg.URL == "" {
		return nil, errors.New("remote hub url is required")
	}
	if cfg.OpenRate < 0 {
		return nil, fmt.Errorf("open rate must be >= 0")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	var limiter *rate.Limiter
	if cfg.OpenRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.OpenRate), 1)
	}
	return &Opener{
		cfg:       cfg,
		limiter:   limiter,
		newRemote: selenium.NewRemote,
	}, nil
}

// Open creates a remote session for the given options.
func (o *Opener) Open(ctx context.Context, opts grid.SessionOptions) (browser.Session, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait open budget: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open remote session: %w", err)
	}
	wd, err := o.newRemote(opts.Capabilities, o.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open remote session: %w", err)
	}
	if o.cfg.PageLoadTimeout > 0 {
		if err := wd.SetPageLoadTimeout(o.cfg.PageLoadTimeout); err != nil {
			if qerr := wd.Quit(); qerr != nil {
				err = errors.Join(err, qerr)
			}
			return nil, fmt.Errorf("set page load timeout: %w", err)
		}
	}
	return &Session{wd: wd, poll: o.cfg.PollInterval}, nil
}

// Session adapts a selenium.WebDriver to browser.Session.
type Session struct {
	wd   selenium.WebDriver
	poll time.Duration
}

// Navigate loads url in the current window.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := s.wd.Get(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitPresent blocks until sel matches at least one element. Only an
// expired wait is reported as browser.ErrTimeout; driver failures are
// returned as they are.
func (s *Session) WaitPresent(ctx context.Context, sel browser.Selector) error {
	by, err := strategy(sel)
	if err != nil {
		return err
	}
	var condErr error
	cond := func(wd selenium.WebDriver) (bool, error) {
		elems, findErr := wd.FindElements(by, sel.Value)
		if findErr != nil {
			if isNoSuchElement(findErr) {
				return false, nil
			}
			condErr = findErr
			return false, findErr
		}
		return len(elems) > 0, nil
	}
	if err := s.wd.WaitWithTimeoutAndInterval(cond, waitBudget(ctx), s.poll); err != nil {
		return waitError(sel.String(), condErr, err)
	}
	return nil
}

// Click waits for sel to be displayed and enabled, then clicks it.
func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	by, err := strategy(sel)
	if err != nil {
		return err
	}
	var (
		target  selenium.WebElement
		condErr error
	)
	cond := func(wd selenium.WebDriver) (bool, error) {
		elem, findErr := wd.FindElement(by, sel.Value)
		if findErr != nil {
			if isNoSuchElement(findErr) {
				return false, nil
			}
			condErr = findErr
			return false, findErr
		}
		displayed, dErr := elem.IsDisplayed()
		if dErr == nil && displayed {
			var enabled bool
			enabled, dErr = elem.IsEnabled()
			displayed = displayed && enabled
		}
		if dErr != nil {
			if isStale(dErr) {
				return false, nil
			}
			condErr = dErr
			return false, dErr
		}
		if !displayed {
			return false, nil
		}
		target = elem
		return true, nil
	}
	if err := s.wd.WaitWithTimeoutAndInterval(cond, waitBudget(ctx), s.poll); err != nil {
		return waitError("clickable "+sel.String(), condErr, err)
	}
	if err := target.Click(); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

// Texts returns the text of every element matching sel.
func (s *Session) Texts(ctx context.Context, sel browser.Selector) ([]string, error) {
	elems, err := s.find(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		text, err := elem.Text()
		if err != nil {
			return nil, fmt.Errorf("read text %s: %w", sel, err)
		}
		out = append(out, text)
	}
	return out, nil
}

// Attributes returns the named attribute of every element matching sel.
// Elements without the attribute yield an empty string.
func (s *Session) Attributes(ctx context.Context, sel browser.Selector, name string) ([]string, error) {
	elems, err := s.find(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		value, err := elem.GetAttribute(name)
		if err != nil && !isNilValue(err) {
			return nil, fmt.Errorf("read attribute %s of %s: %w", name, sel, err)
		}
		out = append(out, value)
	}
	return out, nil
}

// ExecuteScript runs script in the page and discards its result.
func (s *Session) ExecuteScript(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("execute script: %w", err)
	}
	if _, err := s.wd.ExecuteScript(script, []any{}); err != nil {
		return fmt.Errorf("execute script: %w", err)
	}
	return nil
}

// Quit ends the remote session.
func (s *Session) Quit() error {
	if err := s.wd.Quit(); err != nil {
		return fmt.Errorf("quit remote session: %w", err)
	}
	return nil
}

func (s *Session) find(ctx context.Context, sel browser.Selector) ([]selenium.WebElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", sel, err)
	}
	by, err := strategy(sel)
	if err != nil {
		return nil, err
	}
	elems, err := s.wd.FindElements(by, sel.Value)
	if err != nil && !isNoSuchElement(err) {
		return nil, fmt.Errorf("find %s: %w", sel, err)
	}
	return elems, nil
}

func strategy(sel browser.Selector) (string, error) {
	switch sel.By {
	case browser.ByID:
		return selenium.ByID, nil
	case browser.ByTag:
		return selenium.ByTagName, nil
	case browser.ByXPath:
		return selenium.ByXPATH, nil
	case browser.ByCSS:
		return selenium.ByCSSSelector, nil
	default:
		return "", fmt.Errorf("unsupported selector strategy %q", sel.By)
	}
}

func waitBudget(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultWait
	}
	if remaining := time.Until(deadline); remaining > 0 {
		return remaining
	}
	return time.Millisecond
}

// waitError tags an expired wait with browser.ErrTimeout. A condition
// failure means the session itself broke and is returned untagged.
func waitError(what string, condErr, waitErr error) error {
	if condErr != nil {
		return fmt.Errorf("wait for %s: %w", what, condErr)
	}
	return fmt.Errorf("%w: %s: %v", browser.ErrTimeout, what, waitErr)
}

// W3C error codes and the driver's message for a null attribute value.
const (
	codeNoSuchElement = "no such element"
	codeStaleElement  = "stale element reference"
	msgNilValue       = "nil return value"
)

func isNoSuchElement(err error) bool {
	return hasErrorCode(err, codeNoSuchElement)
}

func isStale(err error) bool {
	return hasErrorCode(err, codeStaleElement)
}

func isNilValue(err error) bool {
	return err != nil && strings.Contains(err.Error(), msgNilValue)
}

func hasErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var wdErr *selenium.Error
	if errors.As(err, &wdErr) {
		return wdErr.Err == code
	}
	return strings.Contains(err.Error(), code)
}
