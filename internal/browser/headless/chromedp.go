// Package headless opens local browser sessions via chromedp.
package headless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/gridscraper/internal/browser"
	"github.com/JakeFAU/gridscraper/internal/grid"
)

// Config controls the local browser.
type Config struct {
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// Opener implements browser.Opener with a local Chrome instance. Grid
// capabilities are ignored: the local browser is always Chrome.
type Opener struct {
	cfg Config
}

// New creates an Opener.
func New(cfg Config) *Opener {
	return &Opener{cfg: cfg}
}

// Open starts a browser and returns a session bound to a fresh tab.
func (o *Opener) Open(ctx context.Context, _ grid.SessionOptions) (browser.Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if o.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx, o.setupAction()); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &Session{
		tab:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		navTimeout:  o.navTimeout(),
	}, nil
}

func (o *Opener) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if o.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(o.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (o *Opener) navTimeout() time.Duration {
	if o.cfg.NavigationTimeout > 0 {
		return o.cfg.NavigationTimeout
	}
	return 45 * time.Second
}

// Session is a chromedp tab implementing browser.Session.
type Session struct {
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	navTimeout  time.Duration
	quitOnce    sync.Once
}

// Navigate loads url and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.bind(ctx, s.navTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, classify(err))
	}
	return nil
}

// WaitPresent blocks until sel matches an element or ctx expires.
func (s *Session) WaitPresent(ctx context.Context, sel browser.Selector) error {
	runCtx, cancel := s.bind(ctx, 0)
	defer cancel()
	query, opt := toQuery(sel)
	if err := chromedp.Run(runCtx, chromedp.WaitReady(query, opt)); err != nil {
		return fmt.Errorf("wait %s: %w", sel, classify(err))
	}
	return nil
}

// Click waits for sel to be visible and clicks it.
func (s *Session) Click(ctx context.Context, sel browser.Selector) error {
	runCtx, cancel := s.bind(ctx, 0)
	defer cancel()
	query, opt := toQuery(sel)
	if err := chromedp.Run(runCtx, chromedp.Click(query, opt)); err != nil {
		return fmt.Errorf("click %s: %w", sel, classify(err))
	}
	return nil
}

// Texts returns the rendered text of all matches.
func (s *Session) Texts(ctx context.Context, sel browser.Selector) ([]string, error) {
	return s.collect(ctx, sel, "")
}

// Attributes returns the named property (or attribute) of all matches.
func (s *Session) Attributes(ctx context.Context, sel browser.Selector, name string) ([]string, error) {
	return s.collect(ctx, sel, name)
}

// ExecuteScript evaluates script in the page.
func (s *Session) ExecuteScript(ctx context.Context, script string) error {
	runCtx, cancel := s.bind(ctx, 0)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("execute script: %w", classify(err))
	}
	return nil
}

// Quit closes the tab and the browser process.
func (s *Session) Quit() error {
	s.quitOnce.Do(func() {
		s.tabCancel()
		s.allocCancel()
	})
	return nil
}

// collectJS gathers innerText, or a property falling back to the attribute,
// for every node matched by an XPath or CSS query.
const collectJS = `(function(kind, query, attr) {
	var out = [];
	var read = function(el) {
		if (!attr) { return el.innerText || el.textContent || ""; }
		var v = el[attr];
		if (typeof v !== "string" || v === "") { v = el.getAttribute(attr) || ""; }
		return v;
	};
	if (kind === "xpath") {
		var res = document.evaluate(query, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		for (var i = 0; i < res.snapshotLength; i++) { out.push(read(res.snapshotItem(i))); }
	} else {
		document.querySelectorAll(query).forEach(function(el) { out.push(read(el)); });
	}
	return out;
})(%s, %s, %s)`

func (s *Session) collect(ctx context.Context, sel browser.Selector, attr string) ([]string, error) {
	script, err := collectScript(sel, attr)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := s.bind(ctx, 0)
	defer cancel()
	var out []string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &out)); err != nil {
		return nil, fmt.Errorf("collect %s: %w", sel, classify(err))
	}
	return out, nil
}

func collectScript(sel browser.Selector, attr string) (string, error) {
	kind, query := "css", cssQuery(sel)
	if sel.By == browser.ByXPath {
		kind, query = "xpath", sel.Value
	}
	args := make([]any, 0, 3)
	for _, v := range []string{kind, query, attr} {
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode collect argument: %w", err)
		}
		args = append(args, string(encoded))
	}
	return fmt.Sprintf(collectJS, args...), nil
}

// bind derives a context that runs on the tab but stops when either the
// caller's ctx or the optional timeout ends.
func (s *Session) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.tab)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	} else if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		prev := cancel
		cancel = func() { cancelTimeout(); prev() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func toQuery(sel browser.Selector) (string, chromedp.QueryOption) {
	if sel.By == browser.ByXPath {
		return sel.Value, chromedp.BySearch
	}
	return cssQuery(sel), chromedp.ByQuery
}

func cssQuery(sel browser.Selector) string {
	if sel.By == browser.ByID {
		return "#" + sel.Value
	}
	return sel.Value
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", browser.ErrTimeout, err)
	}
	return err
}
