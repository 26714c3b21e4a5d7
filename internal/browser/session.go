// Package browser defines the browser session abstraction shared by the
// remote grid driver and the local headless driver.
package browser

import (
	"context"
	"errors"

	"github.com/JakeFAU/gridscraper/internal/grid"
)

var (
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("browser wait timed out")
	// ErrNoSuchElement is returned when a selector matches nothing.
	ErrNoSuchElement = errors.New("no such element")
)

// Strategy names how a selector value is interpreted.
type Strategy string

const (
	ByID    Strategy = "id"
	ByTag   Strategy = "tag"
	ByXPath Strategy = "xpath"
	ByCSS   Strategy = "css"
)

// Selector locates elements in the current document.
type Selector struct {
	By    Strategy `mapstructure:"by" yaml:"by"`
	Value string   `mapstructure:"value" yaml:"value"`
}

// ID selects by element id.
func ID(v string) Selector { return Selector{By: ByID, Value: v} }

// Tag selects by tag name.
func Tag(v string) Selector { return Selector{By: ByTag, Value: v} }

// XPath selects by XPath expression.
func XPath(v string) Selector { return Selector{By: ByXPath, Value: v} }

// CSS selects by CSS selector.
func CSS(v string) Selector { return Selector{By: ByCSS, Value: v} }

func (s Selector) String() string {
	return string(s.By) + "=" + s.Value
}

// Session is an open browser instance. Waits honour the context deadline
// and report expiry as ErrTimeout. Quit must be called exactly once.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitPresent(ctx context.Context, sel Selector) error
	Click(ctx context.Context, sel Selector) error
	// Texts returns the rendered text of every match in document order
	// without waiting.
	Texts(ctx context.Context, sel Selector) ([]string, error)
	// Attributes returns the named attribute of every match in document order
	// without waiting.
	Attributes(ctx context.Context, sel Selector, name string) ([]string, error)
	ExecuteScript(ctx context.Context, script string) error
	Quit() error
}

// Opener creates sessions from grid options.
type Opener interface {
	Open(ctx context.Context, opts grid.SessionOptions) (Session, error)
}
